package runner //nolint:testpackage // Tests need access to internal types

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanModel_Update(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		msgs      []scanProgressMsg
		wantDone  int
		wantRatio float64
	}{
		{name: "nothing discovered yet", wantDone: 0, wantRatio: 0},
		{name: "in order", msgs: []scanProgressMsg{{0, 4}, {1, 4}, {2, 4}}, wantDone: 2, wantRatio: 0.5},
		{name: "late report does not rewind", msgs: []scanProgressMsg{{0, 4}, {3, 4}, {2, 4}}, wantDone: 3, wantRatio: 0.75},
		{name: "complete", msgs: []scanProgressMsg{{0, 2}, {1, 2}, {2, 2}}, wantDone: 2, wantRatio: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newScanModel("/srv/app")
			for _, msg := range tt.msgs {
				_, cmd := m.Update(msg)
				assert.Nil(t, cmd)
			}

			assert.Equal(t, tt.wantDone, m.done)
			assert.InDelta(t, tt.wantRatio, m.ratio(), 1e-9)
		})
	}
}

func TestScanModel_View(t *testing.T) {
	t.Parallel()

	m := newScanModel("/srv/app")
	assert.Contains(t, m.View(), "discovering")

	m.Update(scanProgressMsg{done: 1, total: 3})
	assert.Contains(t, m.View(), "1/3")
	assert.Contains(t, m.View(), "/srv/app")

	_, cmd := m.Update(scanDoneMsg{})
	require.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestScanProgress_StartStop(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	p := NewScanProgress(&out, "/srv/app")
	p.Start()
	p.Update(0, 2)
	p.Update(2, 2)
	p.Stop()
}
