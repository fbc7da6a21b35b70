package quantum

import (
	"fmt"
)

// PauliString is a single weighted Pauli term over a qubit register, written
// as one letter per measured qubit in register order. Only diagonal letters
// are supported ('I' and 'Z'): non-diagonal terms require a basis rotation in
// the circuit before measurement, which is outside this package's scope.
type PauliString struct {
	Spec        string
	Coefficient float64
}

// NewPauliString creates a Pauli term with unit coefficient.
func NewPauliString(spec string) PauliString {
	return PauliString{Spec: spec, Coefficient: 1}
}

// WithCoefficient returns a copy of the term scaled by coeff.
func (p PauliString) WithCoefficient(coeff float64) PauliString {
	p.Coefficient = coeff
	return p
}

// eigenvalue returns the term's eigenvalue for one measured shot: the product
// over 'Z' positions of +1 for bit 0 and -1 for bit 1.
func (p PauliString) eigenvalue(shot []int) (float64, error) {
	if len(p.Spec) != len(shot) {
		return 0, fmt.Errorf("quantum: pauli string %q has %d letters, shot has %d bits", p.Spec, len(p.Spec), len(shot))
	}
	eigen := 1.0
	for i, letter := range p.Spec {
		switch letter {
		case 'I':
			// identity contributes 1
		case 'Z':
			if shot[i] == 1 {
				eigen = -eigen
			}
		default:
			return 0, fmt.Errorf("quantum: pauli letter %q requires a basis rotation before measurement; only I and Z are supported", string(letter))
		}
	}
	return eigen, nil
}

// Observable is a weighted sum of Pauli terms, evaluated against measurement
// results in the computational basis.
type Observable struct {
	terms []PauliString
}

// NewObservable creates an observable from its Pauli terms.
func NewObservable(terms ...PauliString) *Observable {
	copied := make([]PauliString, len(terms))
	copy(copied, terms)
	return &Observable{terms: copied}
}

// Terms returns a copy of the observable's Pauli terms.
func (o *Observable) Terms() []PauliString {
	terms := make([]PauliString, len(o.terms))
	copy(terms, o.terms)
	return terms
}

// Expectation computes the scalar expectation value of the observable from
// one or more measurement results: the per-shot sum of weighted term
// eigenvalues, averaged over all shots of all results.
func (o *Observable) Expectation(results []*MeasurementResult) (float64, error) {
	if len(o.terms) == 0 {
		return 0, fmt.Errorf("quantum: observable has no terms")
	}
	totalShots := 0
	sum := 0.0
	for _, result := range results {
		for i := 0; i < result.NumShots(); i++ {
			shot := result.Shot(i)
			for _, term := range o.terms {
				eigen, err := term.eigenvalue(shot)
				if err != nil {
					return 0, err
				}
				sum += term.Coefficient * eigen
			}
			totalShots++
		}
	}
	if totalShots == 0 {
		return 0, fmt.Errorf("quantum: no shots to compute expectation value from")
	}
	return sum / float64(totalShots), nil
}
