package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ziadkadry99/pdfchat/internal/apperr"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "no_credential", Outcome(apperr.ErrNoCredential))
	assert.Equal(t, "timeout", Outcome(fmt.Errorf("%w: deadline", apperr.ErrModelTimeout)))
	assert.Equal(t, "model_error", Outcome(fmt.Errorf("%w: 500", apperr.ErrModelInvocation)))
	assert.Equal(t, "error", Outcome(errors.New("disk full")))
}

func TestObserveIndexBuild(t *testing.T) {
	before := testutil.ToFloat64(IndexBuilds.WithLabelValues("error"))
	ObserveIndexBuild(errors.New("boom"), time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(IndexBuilds.WithLabelValues("error")))
}

func TestObserveUpload(t *testing.T) {
	before := testutil.ToFloat64(Uploads.WithLabelValues("extraction_failed"))
	ObserveUpload(fmt.Errorf("%w: empty", apperr.ErrExtraction))
	assert.Equal(t, before+1, testutil.ToFloat64(Uploads.WithLabelValues("extraction_failed")))
}
