// Package telemetry formats the panel wire protocol spoken by the handheld
// viewer (Bluetooth Electronics panels). Graph points ride in *H...*
// messages, text lines in T.../*T... messages, *HC* clears the graph. The
// two-decimal contract is part of the wire format: downstream panels consume
// these bytes as-is, so the format verbs here are load-bearing.
package telemetry

import "fmt"

// ClearGraph erases the spectrum graph on the panel
const ClearGraph = "*HC*"

// ClearConfirmation acknowledges a clear on the text panel
const ClearConfirmation = "*TLimpieza completada*\n"

// ClearSettleDelayMS is how long the panel needs between the graph clear
// and the confirmation line
const ClearSettleDelayMS = 50

// SpectrumPoint renders one spectrum bin: the raw magnitude and the
// filtered magnitude at the same frequency.
func SpectrumPoint(freq, raw, filtered float64) string {
	return fmt.Sprintf("*HX%2.2fY%2.2f,X%2.2fY%2.2f*", freq, raw, freq, filtered)
}

// FeatureSummary renders the per-window feature line
func FeatureSummary(meanFreq, medianFreq, rms float64) string {
	return fmt.Sprintf("*Tfmean: %.2fHz, fmed:%.2fHz, RMS:%.2f\n", meanFreq, medianFreq, rms)
}

// WindowNumber renders the window sequence line
func WindowNumber(seq uint64) string {
	return fmt.Sprintf("TVentana numero %d\n", seq)
}

// BaselineProgress renders one baseline accumulation step
func BaselineProgress(window uint64, total int, median float64) string {
	return fmt.Sprintf("TBase %.0d/%.0d: f_med=%.2f\n", window, total, median)
}

// ReferenceEstablished renders the baseline completion line
func ReferenceEstablished(ref float64) string {
	return fmt.Sprintf("Tf_ref establecida: %.2f Hz\n", ref)
}

// DropRatio renders the per-window relative decline
func DropRatio(drop float64) string {
	return fmt.Sprintf("*T Drop: %.2f\n", drop)
}

// DeclineDetected renders the start-of-streak notification
func DeclineDetected(drop, threshold float64) string {
	return fmt.Sprintf("TCaida detectada (%.1f%% > %.1f%%)\n", drop*100, threshold*100)
}

// FatigueConfirmed renders the one-time fatigue declaration
func FatigueConfirmed(drop float64) string {
	return fmt.Sprintf("TFATIGA DETECTADA (decae %.1f%% respecto a ref)\n", drop*100)
}
