package ml

import "fmt"

// EnsembleName is the registry key for the soft-voting ensemble.
const EnsembleName = "ensemble"

// SoftVotingEnsemble averages member class probabilities with equal
// weight and predicts the argmax of the blend. Every member must
// support PredictProba; EnsembleKinds lists the eligible variants.
type SoftVotingEnsemble struct {
	Members []Classifier
	Classes int
}

// NewSoftVotingEnsemble wraps already-trained members. At least two are
// required; with fewer, callers fall back to their best single model.
func NewSoftVotingEnsemble(members []Classifier) (*SoftVotingEnsemble, error) {
	if len(members) < 2 {
		return nil, fmt.Errorf("soft voting needs at least 2 members, got %d", len(members))
	}
	k := members[0].NumClasses()
	for _, m := range members[1:] {
		if m.NumClasses() != k {
			return nil, fmt.Errorf("member %s has %d classes, want %d", m.Name(), m.NumClasses(), k)
		}
	}
	return &SoftVotingEnsemble{Members: members, Classes: k}, nil
}

func (e *SoftVotingEnsemble) Name() string    { return EnsembleName }
func (e *SoftVotingEnsemble) NumClasses() int { return e.Classes }

// MemberNames lists the wrapped variants in voting order.
func (e *SoftVotingEnsemble) MemberNames() []string {
	names := make([]string, len(e.Members))
	for i, m := range e.Members {
		names[i] = m.Name()
	}
	return names
}

// Fit refits every member on the same data.
func (e *SoftVotingEnsemble) Fit(X [][]float64, y []int) error {
	for _, m := range e.Members {
		if err := m.Fit(X, y); err != nil {
			return fmt.Errorf("refit %s: %w", m.Name(), err)
		}
	}
	if len(e.Members) > 0 {
		e.Classes = e.Members[0].NumClasses()
	}
	return nil
}

// Predict returns the argmax of the averaged member probabilities.
func (e *SoftVotingEnsemble) Predict(X [][]float64) ([]int, error) {
	probs, err := e.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(probs))
	for i, p := range probs {
		out[i] = argmax(p)
	}
	return out, nil
}

// PredictProba averages member distributions with equal weight.
func (e *SoftVotingEnsemble) PredictProba(X [][]float64) ([][]float64, error) {
	if len(e.Members) == 0 {
		return nil, ErrNotTrained
	}
	out := make([][]float64, len(X))
	for i := range out {
		out[i] = make([]float64, e.Classes)
	}
	for _, m := range e.Members {
		probs, err := m.PredictProba(X)
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", m.Name(), err)
		}
		for i, p := range probs {
			for c, v := range p {
				out[i][c] += v
			}
		}
	}
	scale := 1 / float64(len(e.Members))
	for i := range out {
		for c := range out[i] {
			out[i][c] *= scale
		}
	}
	return out, nil
}
