package questiongen

import (
	"fmt"

	"github.com/abhisek/codequiz/internal/quiz"
)

// Fallback returns the fixed question used when generation fails. It
// depends only on the language and is always structurally valid.
func Fallback(language string, number int) quiz.Question {
	var d Draft
	switch language {
	case "python":
		d = Draft{
			Question:      "Which keyword is used to define a function in Python?",
			Options:       Options{A: "function", B: "def", C: "func", D: "define"},
			CorrectAnswer: "B",
			Explanation:   "In Python, 'def' is the keyword used to define functions.",
		}
	case "java":
		d = Draft{
			Question:      "Which access modifier makes a method accessible from anywhere?",
			Options:       Options{A: "private", B: "protected", C: "public", D: "default"},
			CorrectAnswer: "C",
			Explanation:   "The 'public' access modifier makes methods accessible from any class.",
		}
	default:
		name := quiz.DisplayName(language)
		d = Draft{
			Question: fmt.Sprintf("What is %s primarily used for?", name),
			Options: Options{
				A: "Web development",
				B: "Mobile development",
				C: "System programming",
				D: "General programming",
			},
			CorrectAnswer: "D",
			Explanation:   fmt.Sprintf("%s is a versatile programming language used for various applications.", name),
		}
	}
	return d.ToQuestion(number)
}
