package docdb

import (
	"context"
	"database/sql"

	"github.com/meghashyamc/buzee/db"
)

func (s *Store) GetUserPreferences(ctx context.Context) (db.UserPreferences, error) {
	var prefs db.UserPreferences
	err := s.db.QueryRowContext(ctx, `SELECT first_launch_done, onboarding_done, launch_at_startup, show_in_dock,
		global_shortcut_enabled, global_shortcut, automatic_background_sync, detailed_scan, disallowed_paths
		FROM user_preferences WHERE id = 1`).Scan(&prefs.FirstLaunchDone, &prefs.OnboardingDone, &prefs.LaunchAtStartup,
		&prefs.ShowInDock, &prefs.GlobalShortcutEnabled, &prefs.GlobalShortcut, &prefs.AutomaticBackgroundSync,
		&prefs.DetailedScan, &prefs.DisallowedPaths)
	if err != nil {
		s.logger.Error("failed to read user preferences", "err", err.Error())
		return db.UserPreferences{}, err
	}
	return prefs, nil
}

func (s *Store) SaveUserPreferences(ctx context.Context, prefs db.UserPreferences) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE user_preferences SET first_launch_done = ?, onboarding_done = ?, launch_at_startup = ?,
			show_in_dock = ?, global_shortcut_enabled = ?, global_shortcut = ?, automatic_background_sync = ?, detailed_scan = ?,
			disallowed_paths = ? WHERE id = 1`,
			boolToInt(prefs.FirstLaunchDone), boolToInt(prefs.OnboardingDone), boolToInt(prefs.LaunchAtStartup),
			boolToInt(prefs.ShowInDock), boolToInt(prefs.GlobalShortcutEnabled), prefs.GlobalShortcut,
			boolToInt(prefs.AutomaticBackgroundSync), boolToInt(prefs.DetailedScan), prefs.DisallowedPaths)
		return err
	})
}

func (s *Store) GetAppData(ctx context.Context) (db.AppData, error) {
	var data db.AppData
	err := s.db.QueryRowContext(ctx, `SELECT app_name, app_version, app_mode, app_theme, app_language, last_scan_time, scan_running
		FROM app_data WHERE id = 1`).Scan(&data.AppName, &data.AppVersion, &data.AppMode, &data.AppTheme, &data.AppLanguage,
		&data.LastScanTime, &data.ScanRunning)
	if err != nil {
		s.logger.Error("failed to read app data", "err", err.Error())
		return db.AppData{}, err
	}
	return data, nil
}

func (s *Store) SetAppVersion(ctx context.Context, version string) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `UPDATE app_data SET app_version = ? WHERE id = 1`, version)
		return err
	})
}

// SetScanRunning persists the sync flag. A non-zero startedAt also records the scan time.
func (s *Store) SetScanRunning(ctx context.Context, running bool, startedAt int64) error {
	return s.runTx(ctx, func(tx *sql.Tx) error {
		if startedAt > 0 {
			_, err := tx.ExecContext(ctx, `UPDATE app_data SET scan_running = ?, last_scan_time = ? WHERE id = 1`, boolToInt(running), startedAt)
			return err
		}
		_, err := tx.ExecContext(ctx, `UPDATE app_data SET scan_running = ? WHERE id = 1`, boolToInt(running))
		return err
	})
}

func (s *Store) IsScanRunning(ctx context.Context) (bool, error) {
	var running bool
	err := s.db.QueryRowContext(ctx, `SELECT scan_running FROM app_data WHERE id = 1`).Scan(&running)
	return running, err
}
