package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/stemsi/ujian-proctor/internal/model"
)

// Telegram HTML messages. All interpolated values are escaped.

const maxWarnings = 3

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// FormatCompletion renders the message sent when an attempt is submitted.
func FormatCompletion(p *model.Participant, e *model.Exam, a *model.Attempt) string {
	finished := time.Now()
	if a.FinishedAt != nil {
		finished = *a.FinishedAt
	}
	return fmt.Sprintf(
		"🎉 <b>SISWA MENYELESAIKAN UJIAN</b> 🎉\n\n"+
			"👤 <b>Siswa:</b> %s\n"+
			"🏫 <b>Kelas:</b> %s\n"+
			"📚 <b>Ujian:</b> %s\n"+
			"⏰ <b>Waktu Submit:</b> %s\n\n"+
			"✅ <b>STATUS: TELAH MENYELESAIKAN UJIAN</b>",
		html.EscapeString(p.Name),
		html.EscapeString(orDefault(p.ClassLabel, "-")),
		html.EscapeString(e.Name),
		finished.Format("2006-01-02 15:04:05"),
	)
}

// FormatViolation renders the message sent when a violation is reported.
func FormatViolation(p *model.Participant, e *model.Exam, a *model.Attempt, kind, detail string) string {
	return fmt.Sprintf(
		"🚨 <b>PELANGGARAN UJIAN TERDETEKSI</b> 🚨\n\n"+
			"👤 <b>Siswa:</b> %s\n"+
			"🏫 <b>Kelas:</b> %s\n"+
			"📚 <b>Ujian:</b> %s\n"+
			"⚠️ <b>Jenis Pelanggaran:</b> %s\n"+
			"📋 <b>Detail:</b> %s\n"+
			"🔢 <b>Peringatan:</b> %d/%d\n"+
			"⏰ <b>Waktu:</b> %s",
		html.EscapeString(p.Name),
		html.EscapeString(orDefault(p.ClassLabel, "-")),
		html.EscapeString(e.Name),
		html.EscapeString(kind),
		html.EscapeString(orDefault(detail, "Tidak ada detail")),
		a.ExitAttempts, maxWarnings,
		time.Now().Format("2006-01-02 15:04:05"),
	)
}

// FormatAlert renders a browser-posted alert. A custom message wins; otherwise
// completion or violation layout is chosen from the payload.
func FormatAlert(req *model.TelegramAlertRequest) (model.NotificationKind, string) {
	kind := model.NotifyViolation
	if req.IsCompletion || req.Type == "EXAM_FINISHED" {
		kind = model.NotifyCompletion
	}

	if strings.TrimSpace(req.Message) != "" {
		return kind, html.EscapeString(req.Message)
	}

	student := html.EscapeString(orDefault(req.Student, "Unknown Student"))
	class := html.EscapeString(orDefault(req.Class, "Unknown Class"))
	exam := html.EscapeString(orDefault(req.Exam, "Unknown Exam"))
	platform := html.EscapeString(orDefault(req.Platform, "Unknown"))
	timestamp := html.EscapeString(req.Timestamp)

	if kind == model.NotifyCompletion {
		return kind, fmt.Sprintf(
			"🎉 <b>SISWA MENYELESAIKAN UJIAN</b> 🎉\n\n"+
				"👤 <b>Siswa:</b> %s\n"+
				"🏫 <b>Kelas:</b> %s\n"+
				"📚 <b>Ujian:</b> %s\n"+
				"💻 <b>Platform:</b> %s\n"+
				"⏱️ <b>Sisa Waktu:</b> %s\n"+
				"⏰ <b>Waktu Submit:</b> %s\n\n"+
				"✅ <b>STATUS: TELAH MENYELESAIKAN UJIAN</b>",
			student, class, exam, platform, formatTimeLeft(req.TimeLeft), timestamp,
		)
	}

	return kind, fmt.Sprintf(
		"🚨 <b>PELANGGARAN UJIAN TERDETEKSI</b> 🚨\n\n"+
			"👤 <b>Siswa:</b> %s\n"+
			"🏫 <b>Kelas:</b> %s\n"+
			"📚 <b>Ujian:</b> %s\n"+
			"⚠️ <b>Jenis Pelanggaran:</b> %s\n"+
			"📋 <b>Detail:</b> %s\n"+
			"🔢 <b>Peringatan:</b> %d/%d\n"+
			"💻 <b>Platform:</b> %s\n"+
			"⏰ <b>Waktu:</b> %s",
		student, class, exam,
		html.EscapeString(orDefault(req.ViolationType, "Unknown Violation")),
		html.EscapeString(orDefault(req.Details, "No details")),
		req.WarningCount, maxWarnings,
		platform, timestamp,
	)
}

// FormatTest renders the admin test message.
func FormatTest(siteHeader string) string {
	return fmt.Sprintf("🔔 <b>%s</b>\nNotifikasi uji coba berhasil dikirim pada %s.",
		html.EscapeString(siteHeader), time.Now().Format("2006-01-02 15:04:05"))
}

// formatTimeLeft renders seconds as mm:ss.
func formatTimeLeft(seconds int) string {
	if seconds <= 0 {
		return "00:00"
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
