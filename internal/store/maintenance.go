package store

import "context"

// MaintenanceReport lists what RunMaintenance removed.
type MaintenanceReport struct {
	HistoryRemoved int `json:"historyRemoved"`
	TrendsRemoved  int `json:"trendsRemoved"`
}

// RunMaintenance trims the swipe history, then expired trend snapshots.
// Both steps always run; the first error is returned.
func (s *Store) RunMaintenance(ctx context.Context) (MaintenanceReport, error) {
	var report MaintenanceReport

	historyRemoved, historyErr := s.CleanupHistory(ctx)
	report.HistoryRemoved = historyRemoved

	trendsRemoved, trendsErr := s.CleanupTrends(ctx)
	report.TrendsRemoved = trendsRemoved

	if historyErr != nil {
		return report, historyErr
	}
	return report, trendsErr
}
