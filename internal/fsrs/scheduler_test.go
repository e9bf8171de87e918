package fsrs

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

var t0 = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func mustScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := NewScheduler(DefaultParameters())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s
}

func ptrT(v time.Time) *time.Time { return &v }

// reviewCard returns a settled Review-state card: S=10, D=5, last reviewed
// at t0 with a 9-day interval ahead of it.
func reviewCard() Card {
	return Card{
		ID:         uuid.MustParse("7d3f9a52-1c2b-4e8d-9f10-6a5b4c3d2e1f"),
		Due:        t0.Add(9 * 24 * time.Hour),
		State:      Review,
		Stability:  10,
		Difficulty: 5,
		Reps:       4,
		Lapses:     1,
		LastReview: ptrT(t0),
		CreatedAt:  t0.Add(-40 * 24 * time.Hour),
	}
}

func learningCard(stability float64) Card {
	return Card{
		ID:         uuid.MustParse("3b8e1f07-9d4c-42a6-b5e3-8c7f6a5d4e3b"),
		Due:        t0.Add(10 * time.Minute),
		State:      Learning,
		Stability:  stability,
		Difficulty: 4.93,
		LastReview: ptrT(t0),
		CreatedAt:  t0,
	}
}

// --- New cards ---

func TestNewCardAgain(t *testing.T) {
	s := mustScheduler(t)
	card := NewCard(uuid.New(), t0)
	c, _ := s.ScheduleReview(card, Again, t0)

	if c.State != Learning {
		t.Errorf("State = %v, want Learning", c.State)
	}
	assertFloat(t, "Stability", c.Stability, 0.4)
	assertFloat(t, "Difficulty", c.Difficulty, 8.81)
	if want := t0.Add(time.Minute); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
	if c.Reps != 0 || c.Lapses != 0 {
		t.Errorf("Reps/Lapses = %d/%d, want 0/0", c.Reps, c.Lapses)
	}
}

func TestNewCardHard(t *testing.T) {
	s := mustScheduler(t)
	c, _ := s.ScheduleReview(NewCard(uuid.New(), t0), Hard, t0)

	if c.State != Learning {
		t.Errorf("State = %v, want Learning", c.State)
	}
	assertFloat(t, "Stability", c.Stability, 0.6)
	assertFloat(t, "Difficulty", c.Difficulty, 6.87)
	// midpoint of the 1m and 10m steps
	if want := t0.Add(5*time.Minute + 30*time.Second); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
	if c.Reps != 1 {
		t.Errorf("Reps = %d, want 1", c.Reps)
	}
}

func TestNewCardGood(t *testing.T) {
	s := mustScheduler(t)
	c, _ := s.ScheduleReview(NewCard(uuid.New(), t0), Good, t0)

	if c.State != Learning {
		t.Errorf("State = %v, want Learning", c.State)
	}
	assertFloat(t, "Stability", c.Stability, 2.4)
	assertFloat(t, "Difficulty", c.Difficulty, 4.93)
	if want := t0.Add(10 * time.Minute); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
	if c.Reps != 1 || c.Lapses != 0 {
		t.Errorf("Reps/Lapses = %d/%d, want 1/0", c.Reps, c.Lapses)
	}
}

func TestNewCardEasySkipsLearning(t *testing.T) {
	s := mustScheduler(t)
	c, _ := s.ScheduleReview(NewCard(uuid.New(), t0), Easy, t0)

	if c.State != Review {
		t.Errorf("State = %v, want Review", c.State)
	}
	assertFloat(t, "Stability", c.Stability, 5.8)
	assertFloat(t, "Difficulty", c.Difficulty, 2.99)
	// interval = round(9 * 5.8 * ln(1/0.9)) = 5 days
	if want := t0.Add(5 * 24 * time.Hour); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
}

// --- Learning ---

func TestLearningAgainResetsStep(t *testing.T) {
	s := mustScheduler(t)
	now := t0.Add(10 * time.Minute)
	c, _ := s.ScheduleReview(learningCard(2.4), Again, now)

	if c.State != Learning {
		t.Errorf("State = %v, want Learning", c.State)
	}
	if want := now.Add(time.Minute); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
	assertFloat(t, "Stability", c.Stability, 2.4)    // unchanged by a step repeat
	assertFloat(t, "Difficulty", c.Difficulty, 6.65) // 4.93 + 2*0.86
	if c.Lapses != 0 {
		t.Errorf("Lapses = %d, want 0 (not a Review-state failure)", c.Lapses)
	}
}

func TestLearningHardStretchesStep(t *testing.T) {
	s := mustScheduler(t)
	now := t0.Add(10 * time.Minute)
	c, _ := s.ScheduleReview(learningCard(2.4), Hard, now)

	if c.State != Learning {
		t.Errorf("State = %v, want Learning", c.State)
	}
	if want := now.Add(5*time.Minute + 30*time.Second); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
	assertFloat(t, "Difficulty", c.Difficulty, 5.79)
}

func TestLearningGoodGraduates(t *testing.T) {
	s := mustScheduler(t)
	now := t0.Add(10 * time.Minute)
	// Entered Learning via Again, so stability is still the 0.4 floor value;
	// graduation lifts it to the Good initial stability.
	c, _ := s.ScheduleReview(learningCard(0.4), Good, now)

	if c.State != Review {
		t.Errorf("State = %v, want Review", c.State)
	}
	assertFloat(t, "Stability", c.Stability, 2.4)
	// interval = round(9 * 2.4 * ln(1/0.9)) = 2 days
	if want := now.Add(2 * 24 * time.Hour); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
	if c.Reps != 1 {
		t.Errorf("Reps = %d, want 1", c.Reps)
	}
}

func TestLearningEasyGraduates(t *testing.T) {
	s := mustScheduler(t)
	now := t0.Add(10 * time.Minute)
	c, _ := s.ScheduleReview(learningCard(0.4), Easy, now)

	if c.State != Review {
		t.Errorf("State = %v, want Review", c.State)
	}
	assertFloat(t, "Stability", c.Stability, 5.8)
	if want := now.Add(5 * 24 * time.Hour); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
}

// --- Relearning ---

func TestRelearningAgainReservesStep(t *testing.T) {
	s := mustScheduler(t)
	card := reviewCard()
	card.State = Relearning
	card.Stability = 3.5
	now := t0.Add(10 * time.Minute)
	c, _ := s.ScheduleReview(card, Again, now)

	if c.State != Relearning {
		t.Errorf("State = %v, want Relearning", c.State)
	}
	if want := now.Add(10 * time.Minute); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
	if c.Lapses != card.Lapses {
		t.Errorf("Lapses = %d, want %d (lapse already counted on the fall from Review)", c.Lapses, card.Lapses)
	}
}

func TestRelearningGoodKeepsShrunkStability(t *testing.T) {
	s := mustScheduler(t)
	card := reviewCard()
	card.State = Relearning
	card.Stability = 1.2 // below the Good initial of 2.4; must NOT be lifted
	now := t0.Add(10 * time.Minute)
	c, _ := s.ScheduleReview(card, Good, now)

	if c.State != Review {
		t.Errorf("State = %v, want Review", c.State)
	}
	assertFloat(t, "Stability", c.Stability, 1.2)
	// interval = round(9 * 1.2 * ln(1/0.9)) = 1 day
	if want := now.Add(24 * time.Hour); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
}

// --- Review ---

func TestReviewGoodOnSchedule(t *testing.T) {
	s := mustScheduler(t)
	now := t0.Add(9 * 24 * time.Hour)
	c, _ := s.ScheduleReview(reviewCard(), Good, now)

	if c.State != Review {
		t.Errorf("State = %v, want Review", c.State)
	}
	assertFloat(t, "Stability", c.Stability, 28.047345)
	assertFloat(t, "Difficulty", c.Difficulty, 5)
	assertFloat(t, "ElapsedDays", c.ElapsedDays, 9)
	assertFloat(t, "ScheduledDays", c.ScheduledDays, 27)
	if want := now.Add(27 * 24 * time.Hour); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
	if c.Reps != 5 || c.Lapses != 1 {
		t.Errorf("Reps/Lapses = %d/%d, want 5/1", c.Reps, c.Lapses)
	}
	if c.LastReview == nil || !c.LastReview.Equal(now) {
		t.Errorf("LastReview = %v, want %v", c.LastReview, now)
	}
}

func TestReviewAgainLapses(t *testing.T) {
	s := mustScheduler(t)
	now := t0.Add(30 * 24 * time.Hour)
	card := reviewCard()
	c, _ := s.ScheduleReview(card, Again, now)

	if c.State != Relearning {
		t.Errorf("State = %v, want Relearning", c.State)
	}
	assertFloat(t, "Stability", c.Stability, 3.568725)
	assertFloat(t, "Difficulty", c.Difficulty, 6.72)
	if c.Stability >= card.Stability {
		t.Errorf("Stability = %v, want shrunk below %v", c.Stability, card.Stability)
	}
	if c.Lapses != card.Lapses+1 {
		t.Errorf("Lapses = %d, want %d", c.Lapses, card.Lapses+1)
	}
	if c.Reps != card.Reps {
		t.Errorf("Reps = %d, want unchanged %d", c.Reps, card.Reps)
	}
	if want := now.Add(10 * time.Minute); !c.Due.Equal(want) {
		t.Errorf("Due = %v, want %v", c.Due, want)
	}
}

func TestReviewLateEarnsLargerBoost(t *testing.T) {
	s := mustScheduler(t)
	onTime, _ := s.ScheduleReview(reviewCard(), Good, t0.Add(9*24*time.Hour))
	late, _ := s.ScheduleReview(reviewCard(), Good, t0.Add(30*24*time.Hour))

	if late.Stability <= onTime.Stability {
		t.Errorf("late review stability %v should exceed on-time %v", late.Stability, onTime.Stability)
	}
}

func TestReviewRatingOrdering(t *testing.T) {
	s := mustScheduler(t)
	now := t0.Add(9 * 24 * time.Hour)
	hard, _ := s.ScheduleReview(reviewCard(), Hard, now)
	good, _ := s.ScheduleReview(reviewCard(), Good, now)
	easy, _ := s.ScheduleReview(reviewCard(), Easy, now)

	if !(hard.Stability < good.Stability && good.Stability < easy.Stability) {
		t.Errorf("want Hard < Good < Easy stability, got %v, %v, %v",
			hard.Stability, good.Stability, easy.Stability)
	}
	if !(hard.Due.Before(good.Due) && good.Due.Before(easy.Due)) {
		t.Errorf("want Hard < Good < Easy due dates, got %v, %v, %v",
			hard.Due, good.Due, easy.Due)
	}
}

// --- log ---

func TestLogSnapshotsPreviousState(t *testing.T) {
	s := mustScheduler(t)
	now := t0.Add(30 * 24 * time.Hour)
	card := reviewCard()
	c, log := s.ScheduleReview(card, Again, now)

	if log.CardID != card.ID {
		t.Errorf("CardID = %v, want %v", log.CardID, card.ID)
	}
	if log.Rating != Again {
		t.Errorf("Rating = %v, want Again", log.Rating)
	}
	if log.State != Review {
		t.Errorf("State = %v, want pre-review Review", log.State)
	}
	if !log.Due.Equal(card.Due) {
		t.Errorf("Due = %v, want previous %v", log.Due, card.Due)
	}
	assertFloat(t, "Stability", log.Stability, card.Stability)
	assertFloat(t, "Difficulty", log.Difficulty, card.Difficulty)
	assertFloat(t, "ElapsedDays", log.ElapsedDays, 30)
	if !log.Review.Equal(now) {
		t.Errorf("Review = %v, want %v", log.Review, now)
	}
	if log.NewState != Relearning {
		t.Errorf("NewState = %v, want Relearning", log.NewState)
	}
	if !log.NewDue.Equal(c.Due) {
		t.Errorf("NewDue = %v, want %v", log.NewDue, c.Due)
	}
}

// --- previews ---

func TestPreviewsMatchIndividualRuns(t *testing.T) {
	s := mustScheduler(t)
	now := t0.Add(9 * 24 * time.Hour)
	card := reviewCard()
	before := card.clone()

	previews := s.ReviewPreviews(card, now)
	if len(previews) != 4 {
		t.Fatalf("got %d previews, want 4", len(previews))
	}
	for _, r := range []Rating{Again, Hard, Good, Easy} {
		direct, _ := s.ScheduleReview(card, r, now)
		if !reflect.DeepEqual(previews[r], direct) {
			t.Errorf("%s: preview %+v != direct %+v", r, previews[r], direct)
		}
	}
	if !reflect.DeepEqual(card, before) {
		t.Errorf("input card mutated: %+v != %+v", card, before)
	}
}

func TestScheduleReviewDoesNotMutateInput(t *testing.T) {
	s := mustScheduler(t)
	card := reviewCard()
	before := card.clone()
	s.ScheduleReview(card, Good, t0.Add(24*time.Hour))
	if !reflect.DeepEqual(card, before) {
		t.Errorf("input card mutated: %+v != %+v", card, before)
	}
}

// --- determinism ---

func TestScheduleReviewDeterministic(t *testing.T) {
	s := mustScheduler(t)
	now := t0.Add(13 * 24 * time.Hour)
	card := reviewCard()

	c1, l1 := s.ScheduleReview(card, Hard, now)
	c2, l2 := s.ScheduleReview(card, Hard, now)

	if !reflect.DeepEqual(c1, c2) {
		t.Errorf("cards differ: %+v != %+v", c1, c2)
	}
	if l1 != l2 {
		t.Errorf("logs differ: %+v != %+v", l1, l2)
	}
}

// --- invariants over random input ---

func TestInvariantsOverRandomReviews(t *testing.T) {
	s := mustScheduler(t)
	p := DefaultParameters()
	rng := rand.New(rand.NewSource(42))
	states := []State{New, Learning, Review, Relearning}

	for i := 0; i < 1000; i++ {
		card := NewCard(uuid.New(), t0)
		card.State = states[rng.Intn(len(states))]
		if card.State != New {
			card.Stability = math.Exp(rng.Float64()*8 - 3) // ~[0.05, 150]
			card.Difficulty = 1 + rng.Float64()*9
			card.Reps = rng.Intn(50)
			card.Lapses = rng.Intn(10)
			card.LastReview = ptrT(t0.Add(-time.Duration(rng.Intn(72)) * time.Hour))
		}
		rating := Rating(1 + rng.Intn(4))
		now := t0.Add(time.Duration(rng.Intn(2000)) * time.Hour)

		c, _ := s.ScheduleReview(card, rating, now)

		if c.Stability <= 0 {
			t.Fatalf("case %d: stability %v not positive (state %v rating %v)", i, c.Stability, card.State, rating)
		}
		if c.Difficulty < p.MinDifficulty || c.Difficulty > p.MaxDifficulty {
			t.Fatalf("case %d: difficulty %v out of bounds", i, c.Difficulty)
		}
		if c.Due.Before(now) {
			t.Fatalf("case %d: due %v before now %v", i, c.Due, now)
		}
		if card.State == New && c.State == New {
			t.Fatalf("case %d: card stayed New after review", i)
		}
		if !c.State.IsValid() {
			t.Fatalf("case %d: invalid state %v", i, c.State)
		}
		if c.ElapsedDays < 0 || c.ScheduledDays < 0 {
			t.Fatalf("case %d: negative elapsed/scheduled days", i)
		}
	}
}

func TestCounterSemantics(t *testing.T) {
	s := mustScheduler(t)
	now := t0.Add(24 * time.Hour)
	cases := []struct {
		name       string
		state      State
		rating     Rating
		wantReps   int
		wantLapses int
	}{
		{"review again", Review, Again, 4, 2},
		{"review hard", Review, Hard, 5, 1},
		{"review good", Review, Good, 5, 1},
		{"review easy", Review, Easy, 5, 1},
		{"learning again", Learning, Again, 4, 1},
		{"learning good", Learning, Good, 5, 1},
		{"relearning again", Relearning, Again, 4, 1},
		{"relearning good", Relearning, Good, 5, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			card := reviewCard() // Reps=4, Lapses=1
			card.State = tc.state
			c, _ := s.ScheduleReview(card, tc.rating, now)
			if c.Reps != tc.wantReps || c.Lapses != tc.wantLapses {
				t.Errorf("Reps/Lapses = %d/%d, want %d/%d", c.Reps, c.Lapses, tc.wantReps, tc.wantLapses)
			}
		})
	}
}

// --- clock skew ---

func TestClockSkewClampsElapsed(t *testing.T) {
	s := mustScheduler(t)
	card := reviewCard()
	// Review timestamped before the last review.
	now := t0.Add(-48 * time.Hour)
	c, log := s.ScheduleReview(card, Good, now)

	assertFloat(t, "ElapsedDays", c.ElapsedDays, 0)
	assertFloat(t, "log ElapsedDays", log.ElapsedDays, 0)
	if c.Due.Before(now) {
		t.Errorf("Due = %v regressed before now %v", c.Due, now)
	}
	if c.Stability <= 0 {
		t.Errorf("Stability = %v, want positive", c.Stability)
	}
}

// --- contract violations ---

func assertPanics(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

func TestInvalidRatingPanics(t *testing.T) {
	s := mustScheduler(t)
	assertPanics(t, "rating 0", func() { s.ScheduleReview(reviewCard(), Rating(0), t0) })
	assertPanics(t, "rating 5", func() { s.ScheduleReview(reviewCard(), Rating(5), t0) })
}

func TestMalformedCardPanics(t *testing.T) {
	s := mustScheduler(t)

	bad := reviewCard()
	bad.Stability = 0
	assertPanics(t, "zero stability", func() { s.ScheduleReview(bad, Good, t0) })

	worse := reviewCard()
	worse.State = State(9)
	assertPanics(t, "unknown state", func() { s.ScheduleReview(worse, Good, t0) })
}

// --- retrievability accessor ---

func TestRetrievabilityAccessor(t *testing.T) {
	s := mustScheduler(t)

	if got := s.Retrievability(NewCard(uuid.New(), t0), t0); got != 0 {
		t.Errorf("Retrievability(new card) = %v, want 0", got)
	}

	card := reviewCard()
	got := s.Retrievability(card, t0.Add(9*24*time.Hour))
	assertFloat(t, "R after 9 days at S=10", got, 0.904837)

	// Clock skew reads as "just reviewed".
	assertFloat(t, "R with skew", s.Retrievability(card, t0.Add(-time.Hour)), 1)
}
