package quiz

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-lms/core"
)

var (
	answerIdxTag  = "answeridx"
	answerIdxText = "answer must be the index of one of the options"
)

// InitValidators registers the quiz validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(questionStructValidation, NewQuestion{})
	core.RegisterCustomTranslation(validate, translator, answerIdxTag, answerIdxText)
}

// questionStructValidation checks that the answer of a NewQuestion points to one of its options.
func questionStructValidation(sl validator.StructLevel) {
	qn := sl.Current().Interface().(NewQuestion)
	if len(qn.Options) > 0 && qn.Answer >= len(qn.Options) {
		sl.ReportError(qn.Answer, "answer", "Answer", answerIdxTag, "")
	}
}
