package service

import (
	"fmt"
	"math"
	"time"

	"sfa-backend/internal/clock"
	"sfa-backend/internal/domain"
)

// resolvePeriodRange traduce un periodo nombrado a un rango [from, to] de
// dias civiles inclusivo. Fechas custom invalidas o ausentes degradan a
// hoy/hoy; un rango invertido se corrige intercambiando los extremos.
func resolvePeriodRange(period, startDate, endDate string, today time.Time) (time.Time, time.Time) {
	switch period {
	case "today":
		return today, today
	case "week":
		weekday := int(today.Weekday())
		offset := weekday - 1
		if weekday == 0 {
			offset = 6
		}
		monday := today.AddDate(0, 0, -offset)
		return monday, monday.AddDate(0, 0, 6)
	case "month":
		return clock.MonthBounds(today)
	case "custom":
		if startDate == "" || endDate == "" {
			return today, today
		}
		from, errFrom := clock.ParseDate(startDate)
		to, errTo := clock.ParseDate(endDate)
		if errFrom != nil || errTo != nil {
			return today, today
		}
		if from.After(to) {
			from, to = to, from
		}
		return from, to
	default:
		return today.AddDate(0, 0, -30), today
	}
}

// computeStatistics agrega duraciones y conteos sobre las sesiones listadas.
// El ratio mensual de asistencia lo completa el caller con los datos del mes
// en curso.
func computeStatistics(sessions []domain.Session) Statistics {
	stats := Statistics{TotalSessions: len(sessions)}
	for _, session := range sessions {
		switch session.Status {
		case domain.SessionActive:
			stats.ActiveSessions++
		case domain.SessionCompleted:
			stats.CompletedSessions++
		}
		stats.TotalDuration += session.Duration
	}
	stats.TotalHours = round2(float64(stats.TotalDuration) / 60)
	if stats.CompletedSessions > 0 {
		stats.AverageDuration = round2(float64(stats.TotalDuration) / float64(stats.CompletedSessions))
		stats.AverageHours = round2(stats.AverageDuration / 60)
	}
	return stats
}

// calculateMonthlyAttendance cuenta los dias civiles distintos trabajados en
// el mes y los dias laborables del mes. Los domingos quedan fuera de ambos
// conteos: semana laboral fija de 6 dias.
func calculateMonthlyAttendance(sessions []domain.Session, monthStart, monthEnd time.Time) (workedDays, totalWorkingDays int) {
	worked := make(map[string]struct{})
	for _, session := range sessions {
		day := clock.CivilDate(session.SessionStart)
		if day.Weekday() == time.Sunday {
			continue
		}
		worked[clock.FormatDate(day)] = struct{}{}
	}
	workedDays = len(worked)

	for day := monthStart; !day.After(monthEnd); day = day.AddDate(0, 0, 1) {
		if day.Weekday() != time.Sunday {
			totalWorkingDays++
		}
	}
	return workedDays, totalWorkingDays
}

// formatDuration arma la etiqueta legible "Xh Ym" (o "Ym" bajo la hora).
func formatDuration(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
