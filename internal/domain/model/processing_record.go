package model

import "time"

type OCRStatus string

const (
	OCRStatusPending        OCRStatus = "PENDING"
	OCRStatusProcessing     OCRStatus = "PROCESSING"
	OCRStatusReconstructing OCRStatus = "RECONSTRUCTING"
	OCRStatusDone           OCRStatus = "DONE"
	OCRStatusFailed         OCRStatus = "FAILED"
)

type TranslationStatus string

const (
	TranslationNone       TranslationStatus = "NONE"
	TranslationProcessing TranslationStatus = "PROCESSING"
	TranslationDone       TranslationStatus = "DONE"
	TranslationFailed     TranslationStatus = "FAILED"
)

// ProcessingRecord is the per-target status and text store that
// collaborators poll.
type ProcessingRecord struct {
	TargetID          string            `json:"targetId"`
	RawText           string            `json:"rawText"`
	ReconstructedText *string           `json:"reconstructedText"`
	OCRStatus         OCRStatus         `json:"ocrStatus"`
	OCRError          *string           `json:"ocrError"`
	TranslationStatus TranslationStatus `json:"translationStatus"`
	HindiText         *string           `json:"hindiText"`
	EnglishText       *string           `json:"englishText"`
	Generation        string            `json:"generation"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// NewPendingRecord is the state a record is reset to by every enqueue.
func NewPendingRecord(targetID, generation string, now time.Time) *ProcessingRecord {
	return &ProcessingRecord{
		TargetID:          targetID,
		OCRStatus:         OCRStatusPending,
		TranslationStatus: TranslationNone,
		Generation:        generation,
		UpdatedAt:         now,
	}
}

// InFlight reports whether extraction has not yet reached a terminal state.
func (r *ProcessingRecord) InFlight() bool {
	switch r.OCRStatus {
	case OCRStatusPending, OCRStatusProcessing, OCRStatusReconstructing:
		return true
	}
	return false
}

func (r *ProcessingRecord) Reconstructed() string {
	if r.ReconstructedText == nil {
		return ""
	}
	return *r.ReconstructedText
}

// OCRUpdate is a generation-guarded change to the extraction fields.
// A nil RawText or ReconstructedText leaves the column untouched; Error is
// always written, so nil clears it.
type OCRUpdate struct {
	Status            OCRStatus
	RawText           *string
	ReconstructedText *string
	Error             *string
}
