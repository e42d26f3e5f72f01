package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrPermissionDenied  ErrCode = "PERMISSION_DENIED"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Exams ─────────────────────────────────────────────────────────
	ErrExamNotFound     ErrCode = "EXAM_NOT_FOUND"
	ErrExamNotAvailable ErrCode = "EXAM_NOT_AVAILABLE"

	// ─── Attempts ──────────────────────────────────────────────────────
	ErrAttemptNotFound      ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptAlreadyActive ErrCode = "ATTEMPT_ALREADY_IN_PROGRESS"
	ErrAttemptLimitReached  ErrCode = "ATTEMPT_LIMIT_REACHED"
	ErrAttemptNotInProgress ErrCode = "ATTEMPT_NOT_IN_PROGRESS"
	ErrTimeExpired          ErrCode = "TIME_EXPIRED"
	ErrQuestionNotInExam    ErrCode = "QUESTION_NOT_IN_EXAM"
	ErrInvalidSection       ErrCode = "INVALID_SECTION"
	ErrSectionCompleted     ErrCode = "SECTION_ALREADY_COMPLETED"
	ErrSectionNotActive     ErrCode = "SECTION_NOT_ACTIVE"
	ErrInvalidChoice        ErrCode = "INVALID_CHOICE"
	ErrInvalidAnswer        ErrCode = "INVALID_ANSWER_PAYLOAD"
	ErrInvalidReason        ErrCode = "INVALID_COMPLETION_REASON"
	ErrInvalidSecurityEvent ErrCode = "INVALID_EVENT_TYPE"

	// ─── Grading ───────────────────────────────────────────────────────
	ErrAnswerNotFound     ErrCode = "ANSWER_NOT_FOUND"
	ErrAttemptMismatch    ErrCode = "ATTEMPT_MISMATCH"
	ErrScoreOutOfRange    ErrCode = "SCORE_OUT_OF_RANGE"
	ErrAttemptStillActive ErrCode = "ATTEMPT_IN_PROGRESS"
	ErrAnswerNotManual    ErrCode = "ANSWER_NOT_MANUAL"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal           ErrCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrCode = "SERVICE_UNAVAILABLE"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."
	case ErrTokenExpired:
		return "Token autentikasi telah kedaluwarsa."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrPermissionDenied:
		return "Izin ditolak."
	case ErrStudentAccessOnly:
		return "Sumber daya ini terbatas untuk siswa."
	case ErrAdminAccessOnly:
		return "Sumber daya ini terbatas untuk administrator."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Exams ─────────────────────────────────────────────────────────
	case ErrExamNotFound:
		return "Ujian tidak ditemukan."
	case ErrExamNotAvailable:
		return "Ujian ini saat ini tidak tersedia."

	// ─── Attempts ──────────────────────────────────────────────────────
	case ErrAttemptNotFound:
		return "Percobaan ujian tidak ditemukan."
	case ErrAttemptAlreadyActive:
		return "Anda masih memiliki percobaan yang sedang berjalan untuk ujian ini."
	case ErrAttemptLimitReached:
		return "Batas jumlah percobaan untuk ujian ini telah tercapai."
	case ErrAttemptNotInProgress:
		return "Percobaan ujian ini sudah selesai."
	case ErrTimeExpired:
		return "Waktu ujian telah habis. Jawaban Anda telah dikumpulkan."
	case ErrQuestionNotInExam:
		return "Soal tidak termasuk dalam ujian ini."
	case ErrInvalidSection:
		return "Bagian tidak termasuk dalam ujian ini."
	case ErrSectionCompleted:
		return "Bagian ini sudah selesai dan tidak dapat dibuka kembali."
	case ErrSectionNotActive:
		return "Bagian soal ini sedang tidak aktif."
	case ErrInvalidChoice:
		return "Pilihan jawaban tidak valid untuk soal ini."
	case ErrInvalidAnswer:
		return "Isi jawaban tidak sesuai dengan jenis soal."
	case ErrInvalidReason:
		return "Alasan penyelesaian tidak valid."
	case ErrInvalidSecurityEvent:
		return "Jenis kejadian keamanan tidak dikenal."

	// ─── Grading ───────────────────────────────────────────────────────
	case ErrAnswerNotFound:
		return "Jawaban tidak ditemukan."
	case ErrAttemptMismatch:
		return "Jawaban bukan milik percobaan yang disebutkan."
	case ErrScoreOutOfRange:
		return "Nilai berada di luar rentang poin soal."
	case ErrAttemptStillActive:
		return "Percobaan masih berlangsung dan belum dapat dinilai."
	case ErrAnswerNotManual:
		return "Jawaban pilihan ganda dinilai otomatis."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	case ErrServiceUnavailable:
		return "Layanan sedang tidak tersedia."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
