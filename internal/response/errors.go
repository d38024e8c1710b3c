package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrUnlockTokenInvalid ErrCode = "UNLOCK_TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrPermissionDenied      ErrCode = "PERMISSION_DENIED"
	ErrParticipantAccessOnly ErrCode = "PARTICIPANT_ACCESS_ONLY"
	ErrAdminAccessOnly       ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound            ErrCode = "NOT_FOUND"
	ErrParticipantNotFound ErrCode = "PARTICIPANT_NOT_FOUND"
	ErrConflict            ErrCode = "CONFLICT"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrInvalidCode     ErrCode = "INVALID_CODE"
	ErrAlreadyUsed     ErrCode = "ALREADY_USED"
	ErrAlreadyFinished ErrCode = "ALREADY_FINISHED"
	ErrInvalidState    ErrCode = "INVALID_STATE"
	ErrAmbiguousExam   ErrCode = "AMBIGUOUS_EXAM"

	// ─── Roster ────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "PIN ujian atau kata sandi salah."
	case ErrSessionInvalidated:
		return "Sesi Anda telah berakhir karena login di perangkat lain. Silakan login kembali."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."
	case ErrUnlockTokenInvalid:
		return "Token buka kunci salah."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrPermissionDenied:
		return "Izin ditolak."
	case ErrParticipantAccessOnly:
		return "Sumber daya ini terbatas untuk peserta ujian."
	case ErrAdminAccessOnly:
		return "Sumber daya ini terbatas untuk administrator."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrParticipantNotFound:
		return "Nama peserta tidak terdaftar."
	case ErrConflict:
		return "Sumber daya sudah ada."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrInvalidCode:
		return "Kode akses tidak valid."
	case ErrAlreadyUsed:
		return "Kode akses sudah digunakan."
	case ErrAlreadyFinished:
		return "Anda sudah menyelesaikan ujian ini."
	case ErrInvalidState:
		return "Status ujian tidak mengizinkan tindakan ini."
	case ErrAmbiguousExam:
		return "Konfigurasi ujian bermasalah. Hubungi pengawas."

	// ─── Roster ────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "Unggah file diperlukan."
	case ErrUnsupportedFile:
		return "Jenis file tidak didukung."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
