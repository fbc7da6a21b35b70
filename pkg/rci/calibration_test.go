package rci

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/quanterr/rci/pkg/quantum"
)

func TestKronecker(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	b := mat.NewDense(2, 2, []float64{0, 1, 1, 0})

	out := kronecker(a, b)

	expected := mat.NewDense(4, 4, []float64{
		0, 1, 0, 2,
		1, 0, 2, 0,
		0, 3, 0, 4,
		3, 0, 4, 0,
	})
	assert.True(t, mat.EqualApprox(out, expected, 1e-12))
}

func TestSingleQubitConfusion_ColumnsSumToOne(t *testing.T) {
	factor := singleQubitConfusion(0.1, 0.3)

	assert.InDelta(t, 0.9, factor.At(0, 0), 1e-12)
	assert.InDelta(t, 0.1, factor.At(1, 0), 1e-12)
	assert.InDelta(t, 0.3, factor.At(0, 1), 1e-12)
	assert.InDelta(t, 0.7, factor.At(1, 1), 1e-12)
}

func TestMeasureConfusionMatrix_NoiselessGivesIdentityFactors(t *testing.T) {
	sampler := quantum.NewSimulator(
		quantum.WithShots(200),
		quantum.WithRand(rand.New(rand.NewSource(1))),
	)

	calibration, err := MeasureConfusionMatrix(sampler, []int{0, 1}, 200)
	require.NoError(t, err)

	identity := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	for i := 0; i < 2; i++ {
		assert.True(t, mat.EqualApprox(calibration.Factor(i), identity, 1e-12))
	}

	joint := calibration.ConfusionMatrix()
	rows, cols := joint.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 4, cols)
}

func TestMeasureConfusionMatrix_EstimatesFlipProbabilities(t *testing.T) {
	sampler := quantum.NewSimulator(
		quantum.WithFlipProbabilities(0.2, 0.1),
		quantum.WithShots(20000),
		quantum.WithRand(rand.New(rand.NewSource(2))),
	)

	calibration, err := MeasureConfusionMatrix(sampler, []int{0}, 20000)
	require.NoError(t, err)

	factor := calibration.Factor(0)
	assert.InDelta(t, 0.2, factor.At(1, 0), 0.02)
	assert.InDelta(t, 0.1, factor.At(0, 1), 0.02)
}

func TestMeasureConfusionMatrix_RequiresQubits(t *testing.T) {
	sampler := quantum.NewSimulator()
	_, err := MeasureConfusionMatrix(sampler, nil, 100)
	assert.Error(t, err)
}

func TestCorrectionMatrix_InvertsConfusionMatrix(t *testing.T) {
	calibration := &TensoredCalibration{
		qubits: []int{0, 1},
		factors: []*mat.Dense{
			singleQubitConfusion(0.05, 0.1),
			singleQubitConfusion(0.02, 0.08),
		},
	}

	inverse, err := calibration.CorrectionMatrix()
	require.NoError(t, err)

	var product mat.Dense
	product.Mul(inverse, calibration.ConfusionMatrix())

	identity := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		identity.Set(i, i, 1)
	}
	assert.True(t, mat.EqualApprox(&product, identity, 1e-9))
}

func TestGenerateInverseConfusionMatrix(t *testing.T) {
	inverse, err := GenerateInverseConfusionMatrix(2, 0.1, 0.1)
	require.NoError(t, err)

	confusion := kronecker(singleQubitConfusion(0.1, 0.1), singleQubitConfusion(0.1, 0.1))
	var product mat.Dense
	product.Mul(inverse, confusion)

	identity := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		identity.Set(i, i, 1)
	}
	assert.True(t, mat.EqualApprox(&product, identity, 1e-9))
}

func TestGenerateInverseConfusionMatrix_Validation(t *testing.T) {
	_, err := GenerateInverseConfusionMatrix(0, 0.1, 0.1)
	assert.Error(t, err)

	_, err = GenerateInverseConfusionMatrix(1, -0.1, 0.1)
	assert.Error(t, err)

	// p0+p1 = 1 makes the confusion matrix singular.
	_, err = GenerateInverseConfusionMatrix(1, 0.5, 0.5)
	assert.Error(t, err)
}
