package model

import "time"

// AccessCode is a single-use token exchanged for entry into one exam.
// Used flips false→true exactly once and never reverts.
type AccessCode struct {
	ID         int        `json:"id"`
	Code       string     `json:"code"`
	ExamID     int        `json:"exam_id"`
	Used       bool       `json:"used"`
	RedeemedBy *int       `json:"redeemed_by,omitempty"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// RedeemRequest is the payload for redeeming an access code.
type RedeemRequest struct {
	Code string `json:"code" binding:"required,max=50,accesscode"`
}

// GenerateCodesRequest asks for a batch of fresh codes for an exam.
type GenerateCodesRequest struct {
	Count  int `json:"count" binding:"required,min=1,max=500"`
	Length int `json:"length" binding:"omitempty,min=4,max=20"`
}
