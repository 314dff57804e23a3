package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"radiowave/internal/icecast"
	"radiowave/internal/models"
)

type postgresRepository struct {
	pool       *pgxpool.Pool
	cfg        PostgresConfig
	backend    icecast.Controller
	streamHost string

	backendHealthMu      sync.RWMutex
	backendHealth        []icecast.HealthStatus
	backendHealthUpdated time.Time
}

// NewPostgresRepository opens a Postgres-backed repository and applies the
// schema migrations before returning.
func NewPostgresRepository(ctx context.Context, dsn string, opts ...Option) (Repository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.AcquireTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	repo := &postgresRepository{
		pool:                 pool,
		cfg:                  cfg,
		backend:              cfg.BackendController,
		streamHost:           cfg.StreamHost,
		backendHealth:        []icecast.HealthStatus{{Component: "icecast", Status: "disabled"}},
		backendHealthUpdated: time.Now().UTC(),
	}
	if err := repo.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (r *postgresRepository) BackendHealth(ctx context.Context) icecast.HealthStatus {
	status := r.backend.HealthCheck(ctx)
	r.backendHealthMu.Lock()
	r.backendHealth = []icecast.HealthStatus{status}
	r.backendHealthUpdated = time.Now().UTC()
	r.backendHealthMu.Unlock()
	return status
}

func (r *postgresRepository) LastBackendHealth() ([]icecast.HealthStatus, time.Time) {
	r.backendHealthMu.RLock()
	defer r.backendHealthMu.RUnlock()
	clone := append([]icecast.HealthStatus(nil), r.backendHealth...)
	return clone, r.backendHealthUpdated
}

// opContext bounds one query round-trip. Methods without a caller-supplied
// context derive their deadline here so a stalled server cannot hang a
// request.
func (r *postgresRepository) opContext() (context.Context, context.CancelFunc) {
	timeout := r.cfg.QueryTimeout
	if timeout <= 0 {
		timeout = DefaultPostgresQueryTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

const clientColumns = "id, name, email, phone, company, status, max_streams, max_listeners, bandwidth_limit, billing_plan, monthly_fee, created_at, updated_at"

func scanClient(row pgx.Row) (models.Client, error) {
	var client models.Client
	err := row.Scan(&client.ID, &client.Name, &client.Email, &client.Phone, &client.Company, &client.Status,
		&client.MaxStreams, &client.MaxListeners, &client.BandwidthLimit, &client.BillingPlan, &client.MonthlyFee,
		&client.CreatedAt, &client.UpdatedAt)
	return client, err
}

func (r *postgresRepository) CreateOperator(params CreateOperatorParams) (models.Operator, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return models.Operator{}, validationf("email is required")
	}
	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		return models.Operator{}, validationf("displayName is required")
	}
	if len(params.Password) < 8 {
		return models.Operator{}, validationf("password must be at least 8 characters")
	}
	roles := normalizeRoles(params.Roles)
	if len(roles) == 0 {
		roles = []string{"admin"}
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		return models.Operator{}, err
	}
	id, err := generateID()
	if err != nil {
		return models.Operator{}, err
	}

	operator := models.Operator{
		ID:           id,
		Email:        email,
		DisplayName:  displayName,
		Roles:        roles,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	tag, err := r.pool.Exec(ctx,
		"INSERT INTO operators (id, email, display_name, roles, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (email) DO NOTHING",
		operator.ID, operator.Email, operator.DisplayName, operator.Roles, operator.PasswordHash, operator.CreatedAt)
	if err != nil {
		return models.Operator{}, fmt.Errorf("insert operator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Operator{}, conflictf("email %s already registered", email)
	}
	return operator, nil
}

func (r *postgresRepository) SetOperatorPassword(id, password string) (models.Operator, error) {
	if len(password) < 8 {
		return models.Operator{}, validationf("password must be at least 8 characters")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return models.Operator{}, err
	}
	ctx, cancel := r.opContext()
	defer cancel()
	tag, err := r.pool.Exec(ctx,
		"UPDATE operators SET password_hash = $2 WHERE id = $1", id, hash)
	if err != nil {
		return models.Operator{}, fmt.Errorf("update operator password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Operator{}, notFoundf("operator %s not found", id)
	}
	operator, ok := r.GetOperator(id)
	if !ok {
		return models.Operator{}, notFoundf("operator %s not found", id)
	}
	return operator, nil
}

func (r *postgresRepository) scanOperatorRows(rows pgx.Rows) ([]models.Operator, error) {
	defer rows.Close()
	operators := make([]models.Operator, 0)
	for rows.Next() {
		var operator models.Operator
		if err := rows.Scan(&operator.ID, &operator.Email, &operator.DisplayName, &operator.Roles, &operator.PasswordHash, &operator.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan operator: %w", err)
		}
		operators = append(operators, operator)
	}
	return operators, rows.Err()
}

func (r *postgresRepository) GetOperator(id string) (models.Operator, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	var operator models.Operator
	err := r.pool.QueryRow(ctx,
		"SELECT id, email, display_name, roles, password_hash, created_at FROM operators WHERE id = $1", id).
		Scan(&operator.ID, &operator.Email, &operator.DisplayName, &operator.Roles, &operator.PasswordHash, &operator.CreatedAt)
	if err != nil {
		return models.Operator{}, false
	}
	return operator, true
}

func (r *postgresRepository) FindOperatorByEmail(email string) (models.Operator, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	var operator models.Operator
	err := r.pool.QueryRow(ctx,
		"SELECT id, email, display_name, roles, password_hash, created_at FROM operators WHERE lower(email) = lower($1)",
		strings.TrimSpace(email)).
		Scan(&operator.ID, &operator.Email, &operator.DisplayName, &operator.Roles, &operator.PasswordHash, &operator.CreatedAt)
	if err != nil {
		return models.Operator{}, false
	}
	return operator, true
}

func (r *postgresRepository) ListOperators() []models.Operator {
	ctx, cancel := r.opContext()
	defer cancel()
	rows, err := r.pool.Query(ctx,
		"SELECT id, email, display_name, roles, password_hash, created_at FROM operators ORDER BY email")
	if err != nil {
		return nil
	}
	operators, err := r.scanOperatorRows(rows)
	if err != nil {
		return nil
	}
	return operators
}

func (r *postgresRepository) AuthenticateOperator(email, password string) (models.Operator, error) {
	if password == "" {
		return models.Operator{}, errors.New("password is required")
	}
	operator, ok := r.FindOperatorByEmail(email)
	if !ok {
		return models.Operator{}, ErrInvalidCredentials
	}
	if err := verifyPassword(operator.PasswordHash, password); err != nil {
		return models.Operator{}, err
	}
	return operator, nil
}

func (r *postgresRepository) CreateClient(params CreateClientParams) (models.Client, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return models.Client{}, validationf("name is required")
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" {
		return models.Client{}, validationf("email is required")
	}
	status := params.Status
	if strings.TrimSpace(status) == "" {
		status = models.ClientStatusActive
	}
	normalizedStatus, err := models.ValidateClientStatus(status)
	if err != nil {
		return models.Client{}, validationf("%v", err)
	}

	maxStreams := params.MaxStreams
	if maxStreams <= 0 {
		maxStreams = 1
	}
	maxListeners := params.MaxListeners
	if maxListeners <= 0 {
		maxListeners = 100
	}
	bandwidthLimit := params.BandwidthLimit
	if bandwidthLimit <= 0 {
		bandwidthLimit = 128
	}

	id, err := generateID()
	if err != nil {
		return models.Client{}, err
	}

	now := time.Now().UTC()
	client := models.Client{
		ID:             id,
		Name:           name,
		Email:          email,
		Phone:          strings.TrimSpace(params.Phone),
		Company:        strings.TrimSpace(params.Company),
		Status:         normalizedStatus,
		MaxStreams:     maxStreams,
		MaxListeners:   maxListeners,
		BandwidthLimit: bandwidthLimit,
		BillingPlan:    strings.TrimSpace(params.BillingPlan),
		MonthlyFee:     params.MonthlyFee,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tag, err := r.pool.Exec(ctx,
		"INSERT INTO clients ("+clientColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) ON CONFLICT (email) DO NOTHING",
		client.ID, client.Name, client.Email, client.Phone, client.Company, client.Status,
		client.MaxStreams, client.MaxListeners, client.BandwidthLimit, client.BillingPlan, client.MonthlyFee,
		client.CreatedAt, client.UpdatedAt)
	if err != nil {
		return models.Client{}, fmt.Errorf("insert client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Client{}, conflictf("email %s already registered", email)
	}
	return client, nil
}

func (r *postgresRepository) GetClient(id string) (models.Client, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	client, err := scanClient(r.pool.QueryRow(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = $1", id))
	if err != nil {
		return models.Client{}, false
	}
	return client, true
}

func (r *postgresRepository) ListClients() []ClientWithUsage {
	ctx, cancel := r.opContext()
	defer cancel()
	rows, err := r.pool.Query(ctx,
		"SELECT c.id, c.name, c.email, c.phone, c.company, c.status, c.max_streams, c.max_listeners, c.bandwidth_limit, c.billing_plan, c.monthly_fee, c.created_at, c.updated_at, count(s.id) FROM clients c LEFT JOIN streams s ON s.client_id = c.id GROUP BY c.id ORDER BY c.created_at")
	if err != nil {
		return nil
	}
	defer rows.Close()

	clients := make([]ClientWithUsage, 0)
	for rows.Next() {
		var entry ClientWithUsage
		var streamCount int64
		if err := rows.Scan(&entry.ID, &entry.Name, &entry.Email, &entry.Phone, &entry.Company, &entry.Status,
			&entry.MaxStreams, &entry.MaxListeners, &entry.BandwidthLimit, &entry.BillingPlan, &entry.MonthlyFee,
			&entry.CreatedAt, &entry.UpdatedAt, &streamCount); err != nil {
			return nil
		}
		entry.StreamCount = int(streamCount)
		clients = append(clients, entry)
	}
	if rows.Err() != nil {
		return nil
	}
	return clients
}

func (r *postgresRepository) UpdateClient(id string, update ClientUpdate) (models.Client, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	client, ok := r.GetClient(id)
	if !ok {
		return models.Client{}, notFoundf("client %s not found", id)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Client{}, validationf("name cannot be empty")
		}
		client.Name = name
	}
	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if email == "" {
			return models.Client{}, validationf("email cannot be empty")
		}
		client.Email = email
	}
	if update.Phone != nil {
		client.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.Company != nil {
		client.Company = strings.TrimSpace(*update.Company)
	}
	if update.Status != nil {
		status, err := models.ValidateClientStatus(*update.Status)
		if err != nil {
			return models.Client{}, validationf("%v", err)
		}
		client.Status = status
	}
	if update.MaxStreams != nil {
		if *update.MaxStreams <= 0 {
			return models.Client{}, validationf("maxStreams must be positive")
		}
		client.MaxStreams = *update.MaxStreams
	}
	if update.MaxListeners != nil {
		if *update.MaxListeners <= 0 {
			return models.Client{}, validationf("maxListeners must be positive")
		}
		client.MaxListeners = *update.MaxListeners
	}
	if update.BandwidthLimit != nil {
		if *update.BandwidthLimit <= 0 {
			return models.Client{}, validationf("bandwidthLimit must be positive")
		}
		client.BandwidthLimit = *update.BandwidthLimit
	}
	if update.BillingPlan != nil {
		client.BillingPlan = strings.TrimSpace(*update.BillingPlan)
	}
	if update.MonthlyFee != nil {
		if *update.MonthlyFee < 0 {
			return models.Client{}, validationf("monthlyFee cannot be negative")
		}
		client.MonthlyFee = *update.MonthlyFee
	}
	client.UpdatedAt = time.Now().UTC()

	tag, err := r.pool.Exec(ctx,
		"UPDATE clients SET name = $2, email = $3, phone = $4, company = $5, status = $6, max_streams = $7, max_listeners = $8, bandwidth_limit = $9, billing_plan = $10, monthly_fee = $11, updated_at = $12 WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM clients other WHERE other.email = $3 AND other.id <> $1)",
		client.ID, client.Name, client.Email, client.Phone, client.Company, client.Status,
		client.MaxStreams, client.MaxListeners, client.BandwidthLimit, client.BillingPlan, client.MonthlyFee,
		client.UpdatedAt)
	if err != nil {
		return models.Client{}, fmt.Errorf("update client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Client{}, conflictf("email %s already registered", client.Email)
	}
	return client, nil
}

func (r *postgresRepository) DeleteClient(id string) error {
	ctx, cancel := r.opContext()
	defer cancel()
	tag, err := r.pool.Exec(ctx, "DELETE FROM clients WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("client %s not found", id)
	}
	return nil
}

const streamColumns = "id, client_id, name, description, port, mount_point, bitrate, format, max_listeners, status, stream_url, admin_password, source_password, created_at, updated_at"

func scanStream(row pgx.Row) (models.Stream, error) {
	var stream models.Stream
	err := row.Scan(&stream.ID, &stream.ClientID, &stream.Name, &stream.Description, &stream.Port, &stream.MountPoint,
		&stream.Bitrate, &stream.Format, &stream.MaxListeners, &stream.Status, &stream.StreamURL,
		&stream.AdminPassword, &stream.SourcePassword, &stream.CreatedAt, &stream.UpdatedAt)
	return stream, err
}

func (r *postgresRepository) CreateStream(clientID string, params CreateStreamParams) (models.Stream, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	name := strings.TrimSpace(params.Name)
	if name == "" {
		return models.Stream{}, validationf("name is required")
	}
	if params.Port <= 0 || params.Port > 65535 {
		return models.Stream{}, validationf("port %d is out of range", params.Port)
	}
	format := params.Format
	if strings.TrimSpace(format) == "" {
		format = models.FormatMP3
	}
	normalizedFormat, err := models.ValidateStreamFormat(format)
	if err != nil {
		return models.Stream{}, validationf("%v", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Stream{}, fmt.Errorf("begin create stream: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var maxStreams, maxListeners int
	err = tx.QueryRow(ctx, "SELECT max_streams, max_listeners FROM clients WHERE id = $1 FOR UPDATE", clientID).
		Scan(&maxStreams, &maxListeners)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Stream{}, notFoundf("client %s not found", clientID)
	} else if err != nil {
		return models.Stream{}, fmt.Errorf("lock client: %w", err)
	}

	var owned int
	if err := tx.QueryRow(ctx, "SELECT count(*) FROM streams WHERE client_id = $1", clientID).Scan(&owned); err != nil {
		return models.Stream{}, fmt.Errorf("count client streams: %w", err)
	}
	if owned >= maxStreams {
		return models.Stream{}, limitExceededf("client %s has reached its stream limit of %d", clientID, maxStreams)
	}

	var portTaken bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM streams WHERE port = $1)", params.Port).Scan(&portTaken); err != nil {
		return models.Stream{}, fmt.Errorf("check port: %w", err)
	}
	if portTaken {
		return models.Stream{}, conflictf("port %d already in use", params.Port)
	}

	bitrate := params.Bitrate
	if bitrate <= 0 {
		bitrate = 128
	}
	streamListeners := params.MaxListeners
	if streamListeners <= 0 {
		streamListeners = maxListeners
	}

	id, err := generateID()
	if err != nil {
		return models.Stream{}, err
	}
	adminPassword, err := generateStreamSecret()
	if err != nil {
		return models.Stream{}, err
	}
	sourcePassword, err := generateStreamSecret()
	if err != nil {
		return models.Stream{}, err
	}

	mount := models.NormalizeMountPoint(params.MountPoint)
	now := time.Now().UTC()
	stream := models.Stream{
		ID:             id,
		ClientID:       clientID,
		Name:           name,
		Description:    strings.TrimSpace(params.Description),
		Port:           params.Port,
		MountPoint:     mount,
		Bitrate:        bitrate,
		Format:         normalizedFormat,
		MaxListeners:   streamListeners,
		Status:         models.StreamStatusStopped,
		StreamURL:      fmt.Sprintf("http://%s:%d%s", r.streamHost, params.Port, mount),
		AdminPassword:  adminPassword,
		SourcePassword: sourcePassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO streams ("+streamColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)",
		stream.ID, stream.ClientID, stream.Name, stream.Description, stream.Port, stream.MountPoint,
		stream.Bitrate, stream.Format, stream.MaxListeners, stream.Status, stream.StreamURL,
		stream.AdminPassword, stream.SourcePassword, stream.CreatedAt, stream.UpdatedAt)
	if err != nil {
		return models.Stream{}, fmt.Errorf("insert stream: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Stream{}, fmt.Errorf("commit create stream: %w", err)
	}
	return stream, nil
}

func (r *postgresRepository) GetStream(id string) (models.Stream, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	stream, err := scanStream(r.pool.QueryRow(ctx, "SELECT "+streamColumns+" FROM streams WHERE id = $1", id))
	if err != nil {
		return models.Stream{}, false
	}
	return stream, true
}

func (r *postgresRepository) ListStreams(clientID string) []StreamWithClient {
	ctx, cancel := r.opContext()
	defer cancel()
	query := "SELECT s.id, s.client_id, s.name, s.description, s.port, s.mount_point, s.bitrate, s.format, s.max_listeners, s.status, s.stream_url, s.admin_password, s.source_password, s.created_at, s.updated_at, coalesce(c.name, 'Unknown') FROM streams s LEFT JOIN clients c ON c.id = s.client_id"
	args := []any{}
	if clientID != "" {
		query += " WHERE s.client_id = $1"
		args = append(args, clientID)
	}
	query += " ORDER BY s.created_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()

	streams := make([]StreamWithClient, 0)
	for rows.Next() {
		var entry StreamWithClient
		if err := rows.Scan(&entry.ID, &entry.ClientID, &entry.Name, &entry.Description, &entry.Port, &entry.MountPoint,
			&entry.Bitrate, &entry.Format, &entry.MaxListeners, &entry.Status, &entry.StreamURL,
			&entry.AdminPassword, &entry.SourcePassword, &entry.CreatedAt, &entry.UpdatedAt, &entry.ClientName); err != nil {
			return nil
		}
		streams = append(streams, entry)
	}
	if rows.Err() != nil {
		return nil
	}
	return streams
}

func (r *postgresRepository) ListRunningStreams() []models.Stream {
	ctx, cancel := r.opContext()
	defer cancel()
	rows, err := r.pool.Query(ctx,
		"SELECT "+streamColumns+" FROM streams WHERE status = $1 ORDER BY created_at", models.StreamStatusRunning)
	if err != nil {
		return nil
	}
	defer rows.Close()

	streams := make([]models.Stream, 0)
	for rows.Next() {
		stream, err := scanStream(rows)
		if err != nil {
			return nil
		}
		streams = append(streams, stream)
	}
	if rows.Err() != nil {
		return nil
	}
	return streams
}

func (r *postgresRepository) UpdateStream(id string, update StreamUpdate) (models.Stream, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	stream, ok := r.GetStream(id)
	if !ok {
		return models.Stream{}, notFoundf("stream %s not found", id)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return models.Stream{}, validationf("name cannot be empty")
		}
		stream.Name = name
	}
	if update.Description != nil {
		stream.Description = strings.TrimSpace(*update.Description)
	}
	if update.MountPoint != nil {
		stream.MountPoint = models.NormalizeMountPoint(*update.MountPoint)
		stream.StreamURL = fmt.Sprintf("http://%s:%d%s", r.streamHost, stream.Port, stream.MountPoint)
	}
	if update.Bitrate != nil {
		if *update.Bitrate <= 0 {
			return models.Stream{}, validationf("bitrate must be positive")
		}
		stream.Bitrate = *update.Bitrate
	}
	if update.Format != nil {
		format, err := models.ValidateStreamFormat(*update.Format)
		if err != nil {
			return models.Stream{}, validationf("%v", err)
		}
		stream.Format = format
	}
	if update.MaxListeners != nil {
		if *update.MaxListeners <= 0 {
			return models.Stream{}, validationf("maxListeners must be positive")
		}
		stream.MaxListeners = *update.MaxListeners
	}
	stream.UpdatedAt = time.Now().UTC()

	_, err := r.pool.Exec(ctx,
		"UPDATE streams SET name = $2, description = $3, mount_point = $4, bitrate = $5, format = $6, max_listeners = $7, stream_url = $8, updated_at = $9 WHERE id = $1",
		stream.ID, stream.Name, stream.Description, stream.MountPoint, stream.Bitrate, stream.Format,
		stream.MaxListeners, stream.StreamURL, stream.UpdatedAt)
	if err != nil {
		return models.Stream{}, fmt.Errorf("update stream: %w", err)
	}
	return stream, nil
}

func (r *postgresRepository) DeleteStream(ctx context.Context, id string) error {
	stream, ok := r.GetStream(id)
	if !ok {
		return notFoundf("stream %s not found", id)
	}

	if stream.Status == models.StreamStatusRunning {
		_ = r.backend.Control(ctx, stream.MountPoint, icecast.ActionKillSource)
	}

	tag, err := r.pool.Exec(ctx, "DELETE FROM streams WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete stream: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("stream %s not found", id)
	}
	return nil
}

func (r *postgresRepository) StartStream(ctx context.Context, id string) (models.Stream, error) {
	stream, ok := r.GetStream(id)
	if !ok {
		return models.Stream{}, notFoundf("stream %s not found", id)
	}

	result := r.backend.Control(ctx, stream.MountPoint, icecast.ActionEnable)
	status := models.StreamStatusRunning
	if !result.OK {
		status = models.StreamStatusError
	}
	return r.setStreamStatus(ctx, id, status)
}

func (r *postgresRepository) StopStream(ctx context.Context, id string) (models.Stream, error) {
	stream, ok := r.GetStream(id)
	if !ok {
		return models.Stream{}, notFoundf("stream %s not found", id)
	}

	_ = r.backend.Control(ctx, stream.MountPoint, icecast.ActionKillSource)

	return r.setStreamStatus(ctx, id, models.StreamStatusStopped)
}

func (r *postgresRepository) setStreamStatus(ctx context.Context, id, status string) (models.Stream, error) {
	stream, err := scanStream(r.pool.QueryRow(ctx,
		"UPDATE streams SET status = $2, updated_at = $3 WHERE id = $1 RETURNING "+streamColumns,
		id, status, time.Now().UTC()))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Stream{}, notFoundf("stream %s not found", id)
	} else if err != nil {
		return models.Stream{}, fmt.Errorf("update stream status: %w", err)
	}
	return stream, nil
}

func (r *postgresRepository) AppendAnalyticsRecord(streamID string, listeners int, bandwidth float64, currentSong string) (models.AnalyticsRecord, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	if _, ok := r.GetStream(streamID); !ok {
		return models.AnalyticsRecord{}, notFoundf("stream %s not found", streamID)
	}

	id, err := generateID()
	if err != nil {
		return models.AnalyticsRecord{}, err
	}
	record := models.AnalyticsRecord{
		ID:            id,
		StreamID:      streamID,
		Timestamp:     time.Now().UTC(),
		Listeners:     listeners,
		BandwidthUsed: bandwidth,
		CurrentSong:   currentSong,
	}

	_, err = r.pool.Exec(ctx,
		"INSERT INTO analytics_records (id, stream_id, recorded_at, listeners, bandwidth_used, current_song) VALUES ($1, $2, $3, $4, $5, $6)",
		record.ID, record.StreamID, record.Timestamp, record.Listeners, record.BandwidthUsed, record.CurrentSong)
	if err != nil {
		return models.AnalyticsRecord{}, fmt.Errorf("insert analytics record: %w", err)
	}
	return record, nil
}

func (r *postgresRepository) ListStreamAnalytics(streamID string, days int) ([]models.AnalyticsRecord, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	if _, ok := r.GetStream(streamID); !ok {
		return nil, notFoundf("stream %s not found", streamID)
	}
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	rows, err := r.pool.Query(ctx,
		"SELECT id, stream_id, recorded_at, listeners, bandwidth_used, current_song FROM analytics_records WHERE stream_id = $1 AND recorded_at >= $2 ORDER BY recorded_at DESC",
		streamID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query analytics: %w", err)
	}
	defer rows.Close()

	records := make([]models.AnalyticsRecord, 0)
	for rows.Next() {
		var record models.AnalyticsRecord
		if err := rows.Scan(&record.ID, &record.StreamID, &record.Timestamp, &record.Listeners, &record.BandwidthUsed, &record.CurrentSong); err != nil {
			return nil, fmt.Errorf("scan analytics record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analytics: %w", err)
	}
	return records, nil
}

func (r *postgresRepository) SummarizeStreamAnalytics(streamID string, days int) (AnalyticsSummary, error) {
	records, err := r.ListStreamAnalytics(streamID, days)
	if err != nil {
		return AnalyticsSummary{}, err
	}

	summary := AnalyticsSummary{StreamID: streamID, Records: len(records)}
	if len(records) == 0 {
		return summary, nil
	}

	totalListeners := 0
	for _, record := range records {
		totalListeners += record.Listeners
		if record.Listeners > summary.PeakListeners {
			summary.PeakListeners = record.Listeners
		}
		summary.TotalBandwidth += record.BandwidthUsed
	}
	summary.AvgListeners = float64(totalListeners) / float64(len(records))
	return summary, nil
}

func (r *postgresRepository) GenerateBillingRecord(clientID string) (models.BillingRecord, error) {
	ctx, cancel := r.opContext()
	defer cancel()

	var monthlyFee float64
	err := r.pool.QueryRow(ctx, "SELECT monthly_fee FROM clients WHERE id = $1", clientID).Scan(&monthlyFee)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.BillingRecord{}, notFoundf("client %s not found", clientID)
	} else if err != nil {
		return models.BillingRecord{}, fmt.Errorf("load client: %w", err)
	}

	id, err := generateID()
	if err != nil {
		return models.BillingRecord{}, err
	}
	now := time.Now().UTC()
	record := models.BillingRecord{
		ID:            id,
		ClientID:      clientID,
		Amount:        monthlyFee,
		Status:        models.BillingStatusPending,
		BillingPeriod: currentBillingPeriod(),
		DueDate:       now.AddDate(0, 0, 30),
		CreatedAt:     now,
	}

	_, err = r.pool.Exec(ctx,
		"INSERT INTO billing_records (id, client_id, amount, status, billing_period, due_date, paid_date, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		record.ID, record.ClientID, record.Amount, record.Status, record.BillingPeriod, record.DueDate, record.PaidDate, record.CreatedAt)
	if err != nil {
		return models.BillingRecord{}, fmt.Errorf("insert billing record: %w", err)
	}
	return record, nil
}

func (r *postgresRepository) ListBillingRecords(clientID string) []models.BillingRecord {
	ctx, cancel := r.opContext()
	defer cancel()
	query := "SELECT id, client_id, amount, status, billing_period, due_date, paid_date, created_at FROM billing_records"
	args := []any{}
	if clientID != "" {
		query += " WHERE client_id = $1"
		args = append(args, clientID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()

	records := make([]models.BillingRecord, 0)
	for rows.Next() {
		var record models.BillingRecord
		if err := rows.Scan(&record.ID, &record.ClientID, &record.Amount, &record.Status, &record.BillingPeriod,
			&record.DueDate, &record.PaidDate, &record.CreatedAt); err != nil {
			return nil
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil
	}
	return records
}

func (r *postgresRepository) UpdateBillingStatus(id, status string) (models.BillingRecord, error) {
	normalized, err := models.ValidateBillingStatus(status)
	if err != nil {
		return models.BillingRecord{}, validationf("%v", err)
	}

	ctx, cancel := r.opContext()
	defer cancel()
	var paidDate *time.Time
	if normalized == models.BillingStatusPaid {
		now := time.Now().UTC()
		paidDate = &now
	}

	var record models.BillingRecord
	err = r.pool.QueryRow(ctx,
		"UPDATE billing_records SET status = $2, paid_date = $3 WHERE id = $1 RETURNING id, client_id, amount, status, billing_period, due_date, paid_date, created_at",
		id, normalized, paidDate).
		Scan(&record.ID, &record.ClientID, &record.Amount, &record.Status, &record.BillingPeriod,
			&record.DueDate, &record.PaidDate, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.BillingRecord{}, notFoundf("billing record %s not found", id)
	} else if err != nil {
		return models.BillingRecord{}, fmt.Errorf("update billing record: %w", err)
	}
	return record, nil
}

func (r *postgresRepository) UpsertConfigEntry(key, value, category, description, updatedBy string) (models.ConfigEntry, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return models.ConfigEntry{}, validationf("config key is required")
	}
	if strings.TrimSpace(category) == "" {
		category = "general"
	}

	ctx, cancel := r.opContext()
	defer cancel()
	entry := models.ConfigEntry{
		Key:         key,
		Value:       value,
		Category:    strings.ToLower(strings.TrimSpace(category)),
		Description: strings.TrimSpace(description),
		UpdatedBy:   updatedBy,
		UpdatedAt:   time.Now().UTC(),
	}

	_, err := r.pool.Exec(ctx,
		"INSERT INTO config_entries (key, value, category, description, updated_by, updated_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, category = EXCLUDED.category, description = EXCLUDED.description, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at",
		entry.Key, entry.Value, entry.Category, entry.Description, entry.UpdatedBy, entry.UpdatedAt)
	if err != nil {
		return models.ConfigEntry{}, fmt.Errorf("upsert config entry: %w", err)
	}
	return entry, nil
}

func (r *postgresRepository) GetConfigEntry(key string) (models.ConfigEntry, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	var entry models.ConfigEntry
	err := r.pool.QueryRow(ctx,
		"SELECT key, value, category, description, updated_by, updated_at FROM config_entries WHERE key = $1",
		strings.TrimSpace(key)).
		Scan(&entry.Key, &entry.Value, &entry.Category, &entry.Description, &entry.UpdatedBy, &entry.UpdatedAt)
	if err != nil {
		return models.ConfigEntry{}, false
	}
	return entry, true
}

func (r *postgresRepository) ListConfigEntries(category string) []models.ConfigEntry {
	ctx, cancel := r.opContext()
	defer cancel()
	query := "SELECT key, value, category, description, updated_by, updated_at FROM config_entries"
	args := []any{}
	if category = strings.ToLower(strings.TrimSpace(category)); category != "" {
		query += " WHERE category = $1"
		args = append(args, category)
	}
	query += " ORDER BY key"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil
	}
	defer rows.Close()

	entries := make([]models.ConfigEntry, 0)
	for rows.Next() {
		var entry models.ConfigEntry
		if err := rows.Scan(&entry.Key, &entry.Value, &entry.Category, &entry.Description, &entry.UpdatedBy, &entry.UpdatedAt); err != nil {
			return nil
		}
		entries = append(entries, entry)
	}
	if rows.Err() != nil {
		return nil
	}
	return entries
}

func (r *postgresRepository) GetDashboardStats(ctx context.Context) DashboardStats {
	snapshot := r.backend.Stats(ctx)

	var stats DashboardStats
	_ = r.pool.QueryRow(ctx, "SELECT count(*), count(*) FILTER (WHERE status = $1) FROM clients", models.ClientStatusActive).
		Scan(&stats.TotalClients, &stats.ActiveClients)
	_ = r.pool.QueryRow(ctx, "SELECT count(*), count(*) FILTER (WHERE status = $1) FROM streams", models.StreamStatusRunning).
		Scan(&stats.TotalStreams, &stats.RunningStreams)

	rows, err := r.pool.Query(ctx, "SELECT mount_point FROM streams WHERE status = $1", models.StreamStatusRunning)
	if err == nil {
		for rows.Next() {
			var mount string
			if err := rows.Scan(&mount); err != nil {
				break
			}
			if entry, ok := snapshot[mount]; ok {
				stats.TotalListeners += entry.Listeners
			}
		}
		rows.Close()
	}

	_ = r.pool.QueryRow(ctx,
		"SELECT count(*) FILTER (WHERE status = $1), coalesce(sum(amount) FILTER (WHERE status = $2 AND billing_period = $3), 0) FROM billing_records",
		models.BillingStatusPending, models.BillingStatusPaid, currentBillingPeriod()).
		Scan(&stats.PendingInvoices, &stats.MonthlyRevenue)

	stats.BackendStatus = "unknown"
	if health, _ := r.LastBackendHealth(); len(health) > 0 && health[0].Status != "" {
		stats.BackendStatus = health[0].Status
	}
	return stats
}

func (r *postgresRepository) RecentActivity(limit int) []ActivityEntry {
	if limit <= 0 {
		limit = 10
	}
	ctx, cancel := r.opContext()
	defer cancel()

	entries := make([]ActivityEntry, 0, limit*3)
	collect := func(query, kind, format string) {
		rows, err := r.pool.Query(ctx, query, limit)
		if err != nil {
			return
		}
		defer rows.Close()
		for rows.Next() {
			var label string
			var extra any
			var ts time.Time
			if err := rows.Scan(&label, &extra, &ts); err != nil {
				return
			}
			entries = append(entries, ActivityEntry{
				Type:      kind,
				Message:   fmt.Sprintf(format, label, extra),
				Timestamp: ts,
			})
		}
	}

	collect("SELECT name, '', created_at FROM clients ORDER BY created_at DESC LIMIT $1", "client", "Client %s registered%v")
	collect("SELECT name, port, created_at FROM streams ORDER BY created_at DESC LIMIT $1", "stream", "Stream %s created on port %v")
	collect("SELECT billing_period, amount, created_at FROM billing_records ORDER BY created_at DESC LIMIT $1", "billing", "Invoice for period %s issued (%v)")

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

var _ Repository = (*postgresRepository)(nil)
