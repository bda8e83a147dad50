package generator

import "context"

// Session holds a multi-turn question/answer exchange.
type Session struct {
	ID      string
	History []Turn
	agent   *Agent
}

// NewSession creates an empty session.
func NewSession(id string, agent *Agent) *Session {
	return &Session{
		ID:    id,
		agent: agent,
	}
}

// Ask answers question with the given retrieved material and records the
// turn. Validation errors leave the history unchanged.
func (s *Session) Ask(ctx context.Context, question, material string) (Result, error) {
	res, err := s.agent.Converse(ctx, UserInput{Kind: KindAnswer, Topic: question, Material: material}, s.History)
	if err != nil {
		return Result{}, err
	}
	s.appendTurn(question, res.Artifact)
	return res, nil
}

// Reset forgets all turns.
func (s *Session) Reset() {
	s.History = nil
}

func (s *Session) appendTurn(question string, art Artifact) {
	s.History = append(s.History, Turn{
		Question:  question,
		Answer:    art.Text(),
		Fallback:  art.Fallback,
		CreatedAt: s.agent.now(),
	})
}
