package factory

import (
	"fmt"
	"time"

	"github.com/mcoot/topten/internal/api/stream"
	"github.com/mcoot/topten/internal/dependencies/mocks"
	"github.com/mcoot/topten/internal/events"
	"github.com/mcoot/topten/internal/model"
	"github.com/mcoot/topten/internal/services/clocksync"
	"github.com/mcoot/topten/internal/services/questions"
	"github.com/mcoot/topten/internal/services/resilience"
	"github.com/mcoot/topten/internal/storage/memory"
	"github.com/mcoot/topten/internal/testutil"
)

// TestCategory is the category loaded by LoadTestQuestions
const TestCategory = "takeaway"

// TestAnswers are the ranked answers of the first test question
var TestAnswers = []string{"Pizza", "Burger", "Tacos", "Sushi", "Pasta", "Curry", "Salad", "Steak", "Ramen", "Burrito"}

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Recorder   *events.Recorder
	Memory     *memory.Storage
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Retries do not back off so tests never wait on the fake clock.
func NewTestApp() *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	store := memory.New(memory.WithClock(mockClock))
	mockRandom := mocks.NewMockRandom()
	recorder := events.NewRecorder()

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.RetryBackoff = 0
	resilienceCfg.ReconnectBackoff = 0

	app := newWithDependencies(store, mockClock, mockRandom, questions.New(), recorder,
		resilienceCfg, clocksync.DefaultConfig(), stream.DefaultConfig(), testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Recorder:   recorder,
		Memory:     store,
	}
}

// LoadTestQuestions loads a two-question category for testing. The first
// question has ten answers and the second has three.
func (t *TestApp) LoadTestQuestions() error {
	first := model.Question{ID: "takeaway-1", Text: "Name a popular takeaway"}
	for i, text := range TestAnswers {
		first.Answers = append(first.Answers, model.Answer{
			ID:   fmt.Sprintf("takeaway-1-%d", i+1),
			Rank: i + 1,
			Text: text,
		})
	}
	first.Answers[0].Aliases = []string{"pizza pie"}

	second := model.Question{
		ID:   "takeaway-2",
		Text: "Name a pizza topping",
		Answers: []model.Answer{
			{ID: "takeaway-2-1", Rank: 1, Text: "Pepperoni"},
			{ID: "takeaway-2-2", Rank: 2, Text: "Mushroom"},
			{ID: "takeaway-2-3", Rank: 3, Text: "Olives"},
		},
	}

	return t.Questions.LoadCategories(questions.Category{
		ID:        TestCategory,
		Name:      "Takeaway",
		Questions: []model.Question{first, second},
	})
}
