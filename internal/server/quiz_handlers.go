package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// GetQuiz handles GET /test
func (s *Server) GetQuiz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"questions": s.quizService.Questions()})
}

// SubmitQuiz handles POST /test. Form field qN answers the N-th question.
func (s *Server) SubmitQuiz(c *fiber.Ctx) error {
	total := len(s.quizService.Questions())
	answers := make(map[int]string, total)
	for i := 0; i < total; i++ {
		if v := c.FormValue(fmt.Sprintf("q%d", i+1)); v != "" {
			answers[i] = v
		}
	}
	return c.JSON(s.quizService.Score(answers))
}
