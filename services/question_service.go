package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"hotseat/game"
	"hotseat/models"
	"hotseat/store"

	"github.com/google/uuid"
)

//go:embed seed_questions.json
var seedQuestions []byte

type QuestionService struct {
	store store.Store
}

func NewQuestionService(st store.Store) *QuestionService {
	return &QuestionService{store: st}
}

type CreateQuestionRequest struct {
	Category     string            `json:"category" binding:"required"`
	Difficulty   models.Difficulty `json:"difficulty" binding:"required,oneof=easy medium hard"`
	Text         string            `json:"question_text" binding:"required"`
	Options      []string          `json:"options" binding:"required,min=2,max=6"`
	CorrectIndex int               `json:"correct_index" binding:"min=0"`
	Explanation  string            `json:"explanation"`
	FunFact      string            `json:"fun_fact"`
	Tags         []string          `json:"tags"`
}

type UploadQuestionsRequest struct {
	Questions []CreateQuestionRequest `json:"questions" binding:"required,min=1"`
}

type UploadResult struct {
	SuccessCount int      `json:"success_count"`
	ErrorCount   int      `json:"error_count"`
	Errors       []string `json:"errors,omitempty"`
}

func (r CreateQuestionRequest) question() *models.Question {
	return &models.Question{
		ID:           uuid.NewString(),
		Category:     r.Category,
		Difficulty:   r.Difficulty,
		Text:         r.Text,
		Options:      r.Options,
		CorrectIndex: r.CorrectIndex,
		Explanation:  r.Explanation,
		FunFact:      r.FunFact,
		Tags:         r.Tags,
		CreatedAt:    time.Now(),
	}
}

// Upload stores each valid question and counts the ones that fail instead
// of aborting the batch.
func (s *QuestionService) Upload(ctx context.Context, req *UploadQuestionsRequest) *UploadResult {
	res := &UploadResult{}
	for i, qReq := range req.Questions {
		q := qReq.question()
		err := q.Validate()
		if err == nil {
			err = s.store.CreateQuestion(ctx, q)
		}
		if err != nil {
			res.ErrorCount++
			res.Errors = append(res.Errors, fmt.Sprintf("question %d: %v", i, err))
			continue
		}
		res.SuccessCount++
	}
	return res
}

// Seed loads the bundled questions into an empty bank. It returns how many
// were inserted.
func (s *QuestionService) Seed(ctx context.Context) (int, error) {
	n, err := s.store.CountQuestions(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	var reqs []CreateQuestionRequest
	if err := json.Unmarshal(seedQuestions, &reqs); err != nil {
		return 0, fmt.Errorf("failed to parse seed questions: %w", err)
	}
	res := s.Upload(ctx, &UploadQuestionsRequest{Questions: reqs})
	if res.ErrorCount > 0 {
		log.Printf("[QuestionService] %d seed questions rejected: %v", res.ErrorCount, res.Errors)
	}
	return res.SuccessCount, nil
}

func (s *QuestionService) Clear(ctx context.Context) (int64, error) {
	return s.store.DeleteAllQuestions(ctx)
}

func (s *QuestionService) List(ctx context.Context) ([]models.Question, error) {
	return s.store.ListQuestions(ctx)
}

func (s *QuestionService) Get(ctx context.Context, questionID string) (*models.Question, error) {
	return s.store.GetQuestion(ctx, questionID)
}

func (s *QuestionService) Random(ctx context.Context, excludeIDs []string) (*models.Question, error) {
	return s.store.RandomQuestion(ctx, excludeIDs)
}

// Next picks the question for a new round. When every question was already
// asked it starts over from the whole bank.
func (s *QuestionService) Next(ctx context.Context, asked []string) (*models.Question, error) {
	q, err := s.store.RandomQuestion(ctx, asked)
	if errors.Is(err, game.ErrNotFound) && len(asked) > 0 {
		q, err = s.store.RandomQuestion(ctx, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("no question available: %w", err)
	}
	return q, nil
}
