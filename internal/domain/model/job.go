package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type JobType string

const (
	JobTypeImageOCR           JobType = "IMAGE_OCR"
	JobTypeAudioTranscription JobType = "AUDIO_TRANSCRIPTION"
	JobTypeVideoExtraction    JobType = "VIDEO_EXTRACTION"
)

func (t JobType) Valid() bool {
	switch t {
	case JobTypeImageOCR, JobTypeAudioTranscription, JobTypeVideoExtraction:
		return true
	}
	return false
}

type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusDone      JobStatus = "DONE"
	JobStatusExhausted JobStatus = "EXHAUSTED"
)

const (
	DefaultMaxAttempts = 3
	DefaultAudioMime   = "audio/mpeg"
)

// JobPayload is the media reference carried by a job. Exactly one variant
// exists per JobType.
type JobPayload interface {
	JobType() JobType
}

type ImagePayload struct {
	ImageURLs []string `json:"imageUrls"`
}

type AudioPayload struct {
	AudioURL string `json:"audioUrl"`
	MimeType string `json:"mimeType,omitempty"`
}

type VideoPayload struct {
	VideoURL string `json:"videoUrl"`
}

func (ImagePayload) JobType() JobType { return JobTypeImageOCR }
func (AudioPayload) JobType() JobType { return JobTypeAudioTranscription }
func (VideoPayload) JobType() JobType { return JobTypeVideoExtraction }

// Mime returns the declared mime type or the audio default.
func (p AudioPayload) Mime() string {
	if p.MimeType == "" {
		return DefaultAudioMime
	}
	return p.MimeType
}

// DecodePayload turns the stored JSON back into the variant for t.
func DecodePayload(t JobType, raw []byte) (JobPayload, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch t {
	case JobTypeImageOCR:
		var p ImagePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case JobTypeAudioTranscription:
		var p AudioPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	case JobTypeVideoExtraction:
		var p VideoPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("decode payload: unknown job type %q", t)
}

func EncodePayload(p JobPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("encode payload: nil payload")
	}
	return json.Marshal(p)
}

type Job struct {
	ID          string
	TargetID    string
	Type        JobType
	Status      JobStatus
	Payload     JobPayload
	Attempts    int
	MaxAttempts int
	ScheduledAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	LastError   *string
	// Generation is minted on every enqueue; writes carrying an older
	// generation are discarded.
	Generation string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewJob builds a fresh pending job for targetID.
func NewJob(targetID string, p JobPayload, maxAttempts int, now time.Time) *Job {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Job{
		ID:          uuid.NewString(),
		TargetID:    targetID,
		Type:        p.JobType(),
		Status:      JobStatusPending,
		Payload:     p,
		MaxAttempts: maxAttempts,
		ScheduledAt: now,
		Generation:  NewGeneration(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewGeneration() string { return ulid.Make().String() }

// FailureOutcome is the state a running job moves to after a failed attempt.
type FailureOutcome struct {
	Status        JobStatus
	ScheduledAt   time.Time
	WillRetry     bool
	NextAttemptIn time.Duration
}

// FailureOutcome decides between a delayed retry and exhaustion. Attempts is
// the count already consumed by claims, so the delay grows linearly with it.
func (j *Job) FailureOutcome(now time.Time, nonRetryable bool, backoffUnit time.Duration) FailureOutcome {
	delay := time.Duration(j.Attempts) * backoffUnit
	if nonRetryable || j.Attempts >= j.MaxAttempts {
		return FailureOutcome{Status: JobStatusExhausted, ScheduledAt: j.ScheduledAt, NextAttemptIn: delay}
	}
	return FailureOutcome{
		Status:        JobStatusPending,
		ScheduledAt:   now.Add(delay),
		WillRetry:     true,
		NextAttemptIn: delay,
	}
}

func (j *Job) Terminal() bool {
	return j.Status == JobStatusDone || j.Status == JobStatusExhausted
}
