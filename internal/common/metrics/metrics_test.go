package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/central-university-dev/go-forum-notify/internal/common/metrics"
)

func TestRecordHTTPRequest(t *testing.T) {
	// Arrange
	method := "GET"
	endpoint := "/test"
	statusCode := 200
	duration := 100 * time.Millisecond

	// Act
	metrics.RecordHTTPRequest(method, endpoint, statusCode, duration)

	// Assert
	counterValue := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(method, endpoint, "success"))
	assert.Equal(t, float64(1), counterValue)

	assert.NotNil(t, metrics.HTTPRequestDuration)
}

func TestRecordHTTPRequestError(t *testing.T) {
	// Arrange
	method := "POST"
	endpoint := "/error"
	statusCode := 500
	duration := 50 * time.Millisecond

	// Act
	metrics.RecordHTTPRequest(method, endpoint, statusCode, duration)

	// Assert
	counterValue := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(method, endpoint, "error"))
	assert.Equal(t, float64(1), counterValue)
}

func TestRecordPostMailed(t *testing.T) {
	// Act
	metrics.RecordPostMailed("success")

	// Assert
	counterValue := testutil.ToFloat64(metrics.PostsMailedTotal.WithLabelValues("success"))
	assert.Equal(t, float64(1), counterValue)
}

func TestRecordDeliveryFailure(t *testing.T) {
	// Arrange
	before := testutil.ToFloat64(metrics.DeliveryFailuresTotal)

	// Act
	metrics.RecordDeliveryFailure()

	// Assert
	after := testutil.ToFloat64(metrics.DeliveryFailuresTotal)
	assert.Equal(t, before+1, after)
}

func TestRecordReadRecordsPruned(t *testing.T) {
	// Arrange
	before := testutil.ToFloat64(metrics.ReadRecordsPrunedTotal)

	// Act
	metrics.RecordReadRecordsPruned(7)

	// Assert
	after := testutil.ToFloat64(metrics.ReadRecordsPrunedTotal)
	assert.Equal(t, before+7, after)
}

func TestRecordDatabaseQuery(t *testing.T) {
	// Arrange
	operation := "find_pending_posts"
	duration := 20 * time.Millisecond

	// Act
	metrics.RecordDatabaseQuery(operation, "success", duration)

	// Assert
	counterValue := testutil.ToFloat64(metrics.DatabaseQueriesTotal.WithLabelValues(operation, "success"))
	assert.Equal(t, float64(1), counterValue)
}
