package calibration

import (
	"github.com/rs/zerolog"
)

// RecalibrationJob refreshes the stored confusion matrix on a schedule, so
// corrections track drifting readout error rates.
type RecalibrationJob struct {
	service   *Service
	numQubits int
	p0        float64
	p1        float64
	shots     int
	log       zerolog.Logger
}

// NewRecalibrationJob creates the scheduled recalibration job.
func NewRecalibrationJob(service *Service, numQubits int, p0, p1 float64, shots int, log zerolog.Logger) *RecalibrationJob {
	return &RecalibrationJob{
		service:   service,
		numQubits: numQubits,
		p0:        p0,
		p1:        p1,
		shots:     shots,
		log:       log.With().Str("job", "readout_recalibration").Logger(),
	}
}

// Name returns the job name for scheduler logging.
func (j *RecalibrationJob) Name() string {
	return "readout_recalibration"
}

// Run performs one calibration cycle.
func (j *RecalibrationJob) Run() error {
	rec, err := j.service.Calibrate(j.numQubits, j.p0, j.p1, j.shots)
	if err != nil {
		return err
	}
	j.log.Info().Str("id", rec.ID).Msg("Recalibration cycle completed")
	return nil
}
