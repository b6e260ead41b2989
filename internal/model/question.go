package model

// Answer is one ranked answer to a question
type Answer struct {
	ID      string   `json:"id" yaml:"id"`
	Rank    int      `json:"rank" yaml:"rank"` // 1 is the most popular
	Text    string   `json:"text" yaml:"text"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Question is a prompt with up to BoardSize ranked answers
type Question struct {
	ID      string   `json:"id" yaml:"id"`
	Text    string   `json:"text" yaml:"text"`
	Answers []Answer `json:"answers" yaml:"answers"`
}

// SlotIndex returns the reveal slot for an answer, or -1 when the answer has
// no slot. Answers with an in-range rank take slot rank-1 unless an earlier
// answer already claimed it. Every other answer takes the lowest free slot in
// list order, so no two answers share a slot.
func (q *Question) SlotIndex(a Answer) int {
	slots := q.slots()
	for i := range q.Answers {
		if q.Answers[i].ID == a.ID && q.Answers[i].Text == a.Text {
			return slots[i]
		}
	}
	return -1
}

func (q *Question) slots() []int {
	slots := make([]int, len(q.Answers))
	var taken [BoardSize]bool
	for i, a := range q.Answers {
		slots[i] = -1
		if a.Rank >= 1 && a.Rank <= BoardSize && !taken[a.Rank-1] {
			slots[i] = a.Rank - 1
			taken[a.Rank-1] = true
		}
	}

	free := 0
	for i := range slots {
		if slots[i] >= 0 {
			continue
		}
		for free < BoardSize && taken[free] {
			free++
		}
		if free == BoardSize {
			break
		}
		slots[i] = free
		taken[free] = true
	}
	return slots
}

// RevealTarget returns how many reveals complete the question: one per
// answer that owns a slot
func (q *Question) RevealTarget() int {
	if len(q.Answers) < BoardSize {
		return len(q.Answers)
	}
	return BoardSize
}

// Clone returns a deep copy of the question
func (q Question) Clone() Question {
	c := q
	c.Answers = make([]Answer, len(q.Answers))
	for i, a := range q.Answers {
		a.Aliases = append([]string(nil), a.Aliases...)
		c.Answers[i] = a
	}
	return c
}
