package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopiesFor_Defaults(t *testing.T) {
	assert.Equal(t, 2, CopiesFor(&TicketJob{}))
	assert.Equal(t, 1, CopiesFor(&ApmJob{}))
	assert.Equal(t, 6, CopiesFor(&LabelJob{}))
	assert.Equal(t, 3, CopiesFor(&LabelJob{Copies: 3}))
}

func TestTicketJob_Decode(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		number string
		copies int
	}{
		{"numeric queue number", `{"queueNumber": 17, "poliName": "Poli Anak"}`, "17", 2},
		{"integral float queue number", `{"queueNumber": 12.0, "poliName": "x"}`, "12", 2},
		{"exponent queue number", `{"queueNumber": 1e3, "poliName": "x"}`, "1000", 2},
		{"fractional queue number", `{"queueNumber": 12.5, "poliName": "x"}`, "12.5", 2},
		{"string copies", `{"queueNumber": "A-017", "poliName": "x", "copies": "4"}`, "A-017", 4},
		{"zero copies uses default", `{"queueNumber": "1", "poliName": "x", "copies": 0}`, "1", 2},
		{"garbage copies uses default", `{"queueNumber": "1", "poliName": "x", "copies": "many"}`, "1", 2},
		{"negative copies uses default", `{"queueNumber": "1", "poliName": "x", "copies": -3}`, "1", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var job TicketJob
			require.NoError(t, json.Unmarshal([]byte(tt.body), &job))
			assert.Equal(t, tt.number, job.QueueNumber.String())
			assert.Equal(t, tt.copies, CopiesFor(&job))
		})
	}
}

func TestTicketJob_DestinationLabel(t *testing.T) {
	assert.Equal(t, "Poli Tujuan", (&TicketJob{}).DestinationLabel())
	assert.Equal(t, "Ruang", (&TicketJob{Label: "Ruang"}).DestinationLabel())
}

func TestApmJob_SecondaryLine(t *testing.T) {
	tests := []struct {
		letter string
		number FlexString
		want   string
	}{
		{"G", "3", "G-3"},
		{"", "12", "12"},
		{"G", "-", ""},
		{"G", "", ""},
		{" ", " 5 ", "5"},
	}

	for _, tt := range tests {
		job := &ApmJob{Letter: tt.letter, SecondaryNumber: tt.number}
		assert.Equal(t, tt.want, job.SecondaryLine())
	}
}

func TestJobKind(t *testing.T) {
	assert.True(t, JobKindLabel.IsValid())
	assert.False(t, JobKind("invoice").IsValid())
}
