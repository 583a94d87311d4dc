package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := cv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func getGaugeVecValue(gv *prometheus.GaugeVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := gv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

func getHistogramCount(hv *prometheus.HistogramVec, labels ...string) uint64 {
	m := &dto.Metric{}
	observer := hv.WithLabelValues(labels...)
	if c, ok := observer.(prometheus.Metric); ok {
		if err := c.Write(m); err != nil {
			return 0
		}
		return m.GetHistogram().GetSampleCount()
	}
	return 0
}

func TestRecordPollTick(t *testing.T) {
	okBefore := getCounterValue(PollTicksTotal, "metrics-test", "ok")
	errBefore := getCounterValue(PollTicksTotal, "metrics-test", "error")

	RecordPollTick("metrics-test", 5*time.Millisecond, nil)
	RecordPollTick("metrics-test", 5*time.Millisecond, errors.New("boom"))

	if got := getCounterValue(PollTicksTotal, "metrics-test", "ok"); got != okBefore+1 {
		t.Errorf("ok ticks = %f, want %f", got, okBefore+1)
	}
	if got := getCounterValue(PollTicksTotal, "metrics-test", "error"); got != errBefore+1 {
		t.Errorf("error ticks = %f, want %f", got, errBefore+1)
	}
	if count := getHistogramCount(PollDurationSeconds, "metrics-test"); count < 2 {
		t.Errorf("PollDurationSeconds sample count = %d, want >= 2", count)
	}
}

func TestConnectionGauge(t *testing.T) {
	before := getGaugeVecValue(ActiveConnections, "metrics-test")

	ConnectionOpened("metrics-test")
	ConnectionOpened("metrics-test")
	ConnectionClosed("metrics-test")

	if got := getGaugeVecValue(ActiveConnections, "metrics-test"); got != before+1 {
		t.Errorf("ActiveConnections = %f, want %f", got, before+1)
	}
}

func TestRoomGauge(t *testing.T) {
	RoomOpened("metrics-room")
	RoomClosed("metrics-room")

	if got := getGaugeVecValue(ActiveRooms, "metrics-room"); got != 0 {
		t.Errorf("ActiveRooms = %f, want 0", got)
	}
}

func TestRecordSendFailureAndPush(t *testing.T) {
	RecordSendFailure("metrics-test")
	RecordPushPublish(nil)
	RecordPushPublish(errors.New("down"))
	RecordEmitted("metrics-test", "ticket")

	if val := getCounterValue(SendFailuresTotal, "metrics-test"); val < 1 {
		t.Errorf("SendFailuresTotal = %f, want >= 1", val)
	}
	if val := getCounterValue(PushPublishTotal, "error"); val < 1 {
		t.Errorf("PushPublishTotal{error} = %f, want >= 1", val)
	}
	if val := getCounterValue(EventsEmittedTotal, "metrics-test", "ticket"); val < 1 {
		t.Errorf("EventsEmittedTotal = %f, want >= 1", val)
	}
}
