package handler

import (
	"time"

	"talanta/internal/verification/models"
)

type verificationResponse struct {
	ID              string     `json:"id"`
	DocumentType    string     `json:"document_type"`
	Status          string     `json:"status"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	TrustScoreDelta int        `json:"trust_score_delta,omitempty"`
	ExtractedName   string     `json:"extracted_name,omitempty"`
	ExtractedSkill  string     `json:"extracted_skill,omitempty"`
	VerifiedAt      *time.Time `json:"verified_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toVerificationResponse(rec *models.VerificationRecord) verificationResponse {
	return verificationResponse{
		ID:              rec.ID.String(),
		DocumentType:    string(rec.DocumentType),
		Status:          string(rec.Status),
		RejectionReason: rec.RejectionReason,
		TrustScoreDelta: rec.TrustScoreDelta,
		ExtractedName:   rec.ExtractedName,
		ExtractedSkill:  rec.ExtractedSkill,
		VerifiedAt:      rec.VerifiedAt,
		CreatedAt:       rec.CreatedAt,
	}
}

type uploadResponse struct {
	verificationResponse
	EstimatedTime string `json:"estimated_time"`
	Message       string `json:"message"`
}

func toUploadResponse(rec *models.VerificationRecord) uploadResponse {
	return uploadResponse{
		verificationResponse: toVerificationResponse(rec),
		EstimatedTime:        "2-5 minutes",
		Message:              "Document uploaded successfully. Processing will complete shortly.",
	}
}

type claimResponse struct {
	Skill  string `json:"skill"`
	Status string `json:"status"`
}

type listResponse struct {
	Verifications []verificationResponse `json:"verifications"`
	Counts        statusCounts           `json:"counts"`
}

type statusCounts struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Verified   int `json:"verified"`
	Rejected   int `json:"rejected"`
}

func toListResponse(recs []models.VerificationRecord) listResponse {
	out := listResponse{Verifications: make([]verificationResponse, 0, len(recs))}
	for i := range recs {
		out.Verifications = append(out.Verifications, toVerificationResponse(&recs[i]))
		out.Counts.Total++
		switch recs[i].Status {
		case models.StatusPending:
			out.Counts.Pending++
		case models.StatusProcessing:
			out.Counts.Processing++
		case models.StatusVerified:
			out.Counts.Verified++
		case models.StatusRejected:
			out.Counts.Rejected++
		}
	}
	return out
}
