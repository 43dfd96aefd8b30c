package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	apperrors "crewsignal/internal/errors"
	"crewsignal/internal/migrations"
	"crewsignal/internal/models"
	"crewsignal/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	// Validate database path to prevent directory traversal
	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	schema, err := migrations.GetInitialSchema()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to read schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	enc, err := NewEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: enc}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// --- Signals ---

func (d *Database) SaveSignal(ctx context.Context, signal *models.Signal) error {
	targetIDs, err := json.Marshal(signal.TargetIDs)
	if err != nil {
		return fmt.Errorf("failed to encode target IDs: %w", err)
	}

	query := `
		INSERT INTO signals (
			id, sender_id, message, radius_meters, latitude, longitude,
			target_type, target_ids, status, duration_minutes, created_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = d.db.ExecContext(ctx, query,
		signal.ID,
		signal.SenderID,
		signal.Message,
		signal.RadiusMeters,
		signal.Latitude,
		signal.Longitude,
		string(signal.TargetType),
		string(targetIDs),
		string(signal.Status),
		signal.DurationMinutes,
		signal.CreatedAt,
		signal.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save signal: %w", err)
	}

	return nil
}

func (d *Database) GetSignal(ctx context.Context, id string) (*models.Signal, error) {
	query := `
		SELECT id, sender_id, message, radius_meters, latitude, longitude,
			   target_type, target_ids, status, duration_minutes,
			   notifications_sent, error, created_at, expires_at, processed_at
		FROM signals
		WHERE id = ?
	`

	signal := &models.Signal{}
	var targetType, status, targetIDs string
	var notificationsSent sql.NullInt64
	var processedAt sql.NullTime

	err := d.db.QueryRowContext(ctx, query, id).Scan(
		&signal.ID,
		&signal.SenderID,
		&signal.Message,
		&signal.RadiusMeters,
		&signal.Latitude,
		&signal.Longitude,
		&targetType,
		&targetIDs,
		&status,
		&signal.DurationMinutes,
		&notificationsSent,
		&signal.Error,
		&signal.CreatedAt,
		&signal.ExpiresAt,
		&processedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signal: %w", err)
	}

	signal.TargetType = models.TargetType(targetType)
	signal.Status = models.SignalStatus(status)
	if err := json.Unmarshal([]byte(targetIDs), &signal.TargetIDs); err != nil {
		return nil, fmt.Errorf("failed to decode target IDs: %w", err)
	}
	if notificationsSent.Valid {
		sent := int(notificationsSent.Int64)
		signal.NotificationsSent = &sent
	}
	if processedAt.Valid {
		t := processedAt.Time
		signal.ProcessedAt = &t
	}

	return signal, nil
}

// RecordDispatchSuccess writes the dispatch count and processing timestamp
// onto an unprocessed active signal. The guard clause makes the terminal
// write exactly-once: a second attempt affects zero rows.
func (d *Database) RecordDispatchSuccess(ctx context.Context, id string, notificationsSent int) error {
	query := `
		UPDATE signals
		SET notifications_sent = ?, processed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'active' AND processed_at IS NULL
	`

	result, err := d.db.ExecContext(ctx, query, notificationsSent, id)
	if err != nil {
		return fmt.Errorf("failed to record dispatch result: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check dispatch result write: %w", err)
	}
	if rows == 0 {
		return apperrors.New(apperrors.KindConflict, "signal is not active or already processed").WithContext("signalId", id)
	}

	return nil
}

// RecordDispatchFailure marks a signal failed with a reason. Like the
// success path it only ever applies to an unprocessed active signal.
func (d *Database) RecordDispatchFailure(ctx context.Context, id, reason string) error {
	query := `
		UPDATE signals
		SET status = 'failed', error = ?, processed_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'active' AND processed_at IS NULL
	`

	result, err := d.db.ExecContext(ctx, query, reason, id)
	if err != nil {
		return fmt.Errorf("failed to record dispatch failure: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check dispatch failure write: %w", err)
	}
	if rows == 0 {
		return apperrors.New(apperrors.KindConflict, "signal is not active or already processed").WithContext("signalId", id)
	}

	return nil
}

// UpdateSignalStatus applies a forward-only status transition. Transitions
// away from anything but active are rejected.
func (d *Database) UpdateSignalStatus(ctx context.Context, id string, next models.SignalStatus) error {
	switch next {
	case models.SignalStatusExpired, models.SignalStatusCancelled, models.SignalStatusFailed:
	default:
		return apperrors.New(apperrors.KindInvalidArgument, fmt.Sprintf("invalid status transition target %q", next))
	}

	query := `UPDATE signals SET status = ? WHERE id = ? AND status = 'active'`

	result, err := d.db.ExecContext(ctx, query, string(next), id)
	if err != nil {
		return fmt.Errorf("failed to update signal status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check signal status update: %w", err)
	}
	if rows == 0 {
		return apperrors.New(apperrors.KindConflict, "signal is not active").WithContext("signalId", id)
	}

	return nil
}

// ExpireSignals marks every active signal past its expiry as expired and
// returns the number of signals swept.
func (d *Database) ExpireSignals(ctx context.Context, now time.Time) (int, error) {
	query := `UPDATE signals SET status = 'expired' WHERE status = 'active' AND expires_at <= ?`

	result, err := d.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire signals: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired signals: %w", err)
	}

	return int(rows), nil
}

// --- Users and tokens ---

func (d *Database) SaveUser(ctx context.Context, user *models.User) error {
	encryptedToken, err := d.encryptor.EncryptForLookupIfEnabled(user.PushToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt push token: %w", err)
	}

	query := `
		INSERT INTO users (id, display_name, push_token)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name, push_token = excluded.push_token
	`

	if _, err := d.db.ExecContext(ctx, query, user.ID, user.DisplayName, encryptedToken); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	for _, token := range user.ExtraPushTokens {
		if err := d.AddPushToken(ctx, user.ID, token); err != nil {
			return err
		}
	}

	return nil
}

// AddPushToken registers an additional delivery token for a user.
func (d *Database) AddPushToken(ctx context.Context, userID, token string) error {
	encryptedToken, err := d.encryptor.EncryptForLookupIfEnabled(token)
	if err != nil {
		return fmt.Errorf("failed to encrypt push token: %w", err)
	}

	query := `INSERT OR IGNORE INTO user_push_tokens (user_id, token) VALUES (?, ?)`

	if _, err := d.db.ExecContext(ctx, query, userID, encryptedToken); err != nil {
		return fmt.Errorf("failed to add push token: %w", err)
	}

	return nil
}

// ListCandidateIDs returns every user ID except the given sender.
func (d *Database) ListCandidateIDs(ctx context.Context, excludeUserID string) ([]string, error) {
	query := `SELECT id FROM users WHERE id != ? ORDER BY id`

	rows, err := d.db.QueryContext(ctx, query, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate IDs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate ID: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// GetUsersByIDs fetches users with their decrypted delivery tokens for a
// batch of IDs. Callers are expected to keep batches at LookupBatchSize.
func (d *Database) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(
		`SELECT id, display_name, push_token, created_at FROM users WHERE id IN (%s)`,
		placeholders(len(ids)),
	)

	rows, err := d.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var encryptedToken sql.NullString
		if err := rows.Scan(&user.ID, &user.DisplayName, &encryptedToken, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if encryptedToken.Valid {
			token, err := d.encryptor.DecryptIfEnabled(encryptedToken.String)
			if err != nil {
				return nil, fmt.Errorf("failed to decrypt push token: %w", err)
			}
			user.PushToken = token
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range users {
		extras, err := d.getExtraPushTokens(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].ExtraPushTokens = extras
	}

	return users, nil
}

func (d *Database) getExtraPushTokens(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT token FROM user_push_tokens WHERE user_id = ? ORDER BY created_at`

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get push tokens: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var encrypted string
		if err := rows.Scan(&encrypted); err != nil {
			return nil, fmt.Errorf("failed to scan push token: %w", err)
		}
		token, err := d.encryptor.DecryptIfEnabled(encrypted)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt push token: %w", err)
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

// --- Crews ---

func (d *Database) SaveCrew(ctx context.Context, crew *models.Crew) error {
	query := `
		INSERT INTO crews (id, name)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`

	if _, err := d.db.ExecContext(ctx, query, crew.ID, crew.Name); err != nil {
		return fmt.Errorf("failed to save crew: %w", err)
	}

	for _, memberID := range crew.MemberIDs {
		memberQuery := `INSERT OR IGNORE INTO crew_members (crew_id, user_id) VALUES (?, ?)`
		if _, err := d.db.ExecContext(ctx, memberQuery, crew.ID, memberID); err != nil {
			return fmt.Errorf("failed to save crew member: %w", err)
		}
	}

	return nil
}

// GetCrewMembers returns the member IDs of a crew. An unknown crew yields
// an empty list, not an error.
func (d *Database) GetCrewMembers(ctx context.Context, crewID string) ([]string, error) {
	query := `SELECT user_id FROM crew_members WHERE crew_id = ? ORDER BY user_id`

	rows, err := d.db.QueryContext(ctx, query, crewID)
	if err != nil {
		return nil, fmt.Errorf("failed to get crew members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan crew member: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// --- Locations ---

// UpsertUserLocation overwrites a user's last known position with a
// server-assigned timestamp. Single current value only, no history.
func (d *Database) UpsertUserLocation(ctx context.Context, userID string, latitude, longitude float64) error {
	query := `
		INSERT INTO user_locations (user_id, latitude, longitude, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := d.db.ExecContext(ctx, query, userID, latitude, longitude); err != nil {
		return fmt.Errorf("failed to upsert user location: %w", err)
	}

	return nil
}

// GetLocationsByUserIDs fetches last-known locations for a batch of users.
// Users without a location record are simply absent from the result.
func (d *Database) GetLocationsByUserIDs(ctx context.Context, ids []string) (map[string]models.UserLocation, error) {
	locations := make(map[string]models.UserLocation)
	if len(ids) == 0 {
		return locations, nil
	}

	query := fmt.Sprintf(
		`SELECT user_id, latitude, longitude, updated_at FROM user_locations WHERE user_id IN (%s)`,
		placeholders(len(ids)),
	)

	rows, err := d.db.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get user locations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var loc models.UserLocation
		if err := rows.Scan(&loc.UserID, &loc.Location.Latitude, &loc.Location.Longitude, &loc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user location: %w", err)
		}
		locations[loc.UserID] = loc
	}

	return locations, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
