package factory

import (
	"time"

	"github.com/mcoot/judgeportal/internal/dependencies/mocks"
	"github.com/mcoot/judgeportal/internal/storage/memory"
	"github.com/mcoot/judgeportal/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App over the fixture with mocked dependencies.
// The broadcast loop only ticks when MockClock.Tick is called.
func NewTestApp(fixture *testutil.Fixture) *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(Config{
		JudgeDir:     fixture.JudgeDir,
		AccountsFile: fixture.AccountsFile,
	}, store, mockClock, mockRandom, testutil.NopLogger())

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
