package repositories

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"dingbot/internal/platform/models"

	go_json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

var ErrDeliveryNotFound = errors.New("delivery not found")

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

type DeliveryRepository struct {
	db *sql.DB
}

func NewDeliveryRepository(db *sql.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

const deliveryColumns = `id, robot, msgtype, status, errcode, errmsg, error, response, duration_ms, created_at`

// Create assigns an ID and creation time when they are unset.
func (r *DeliveryRepository) Create(d *models.Delivery) error {
	if d.ID == "" {
		d.ID = "dlv_" + uuid.New().String()
	}
	if d.CreatedAt == 0 {
		d.CreatedAt = time.Now().Unix()
	}

	var response sql.NullString
	if d.Response != nil {
		data, err := go_json.Marshal(d.Response)
		if err != nil {
			return err
		}
		response = sql.NullString{String: string(data), Valid: true}
	}

	var errcode sql.NullInt64
	if d.ErrCode != nil {
		errcode = sql.NullInt64{Int64: int64(*d.ErrCode), Valid: true}
	}

	query := `
		INSERT INTO deliveries (` + deliveryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, d.ID, d.Robot, d.MsgType, string(d.Status), errcode,
		nullString(d.ErrMsg), nullString(d.Error), response, d.DurationMS, d.CreatedAt)
	return err
}

func (r *DeliveryRepository) GetByID(id string) (*models.Delivery, error) {
	row := r.db.QueryRow(`SELECT `+deliveryColumns+` FROM deliveries WHERE id = ?`, id)
	d, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeliveryNotFound
	}
	return d, err
}

// List returns the newest deliveries first. A non-empty robots restricts
// the result to those robots before the limit is applied.
// limit is clamped to [1, MaxListLimit]; zero means DefaultListLimit.
func (r *DeliveryRepository) List(robots []string, limit int) ([]*models.Delivery, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	query := `SELECT ` + deliveryColumns + ` FROM deliveries`
	args := make([]any, 0, len(robots)+1)
	if len(robots) > 0 {
		query += ` WHERE robot IN (?` + strings.Repeat(`, ?`, len(robots)-1) + `)`
		for _, robot := range robots {
			args = append(args, robot)
		}
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deliveries := []*models.Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// StatusCount is the number of deliveries of one robot in one status.
type StatusCount struct {
	Robot  string
	Status models.DeliveryStatus
	Count  int64
}

func (r *DeliveryRepository) CountByStatus() ([]StatusCount, error) {
	rows, err := r.db.Query(`SELECT robot, status, COUNT(*) FROM deliveries GROUP BY robot, status ORDER BY robot, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var c StatusCount
		var status string
		if err := rows.Scan(&c.Robot, &status, &c.Count); err != nil {
			return nil, err
		}
		c.Status = models.DeliveryStatus(status)
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// DeleteOlderThan removes deliveries created before the unix time cutoff.
func (r *DeliveryRepository) DeleteOlderThan(cutoff int64) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM deliveries WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Ping checks the underlying connection.
func (r *DeliveryRepository) Ping() error {
	return r.db.Ping()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDelivery(s scanner) (*models.Delivery, error) {
	var d models.Delivery
	var status string
	var errcode sql.NullInt64
	var errmsg, errStr, response sql.NullString

	err := s.Scan(&d.ID, &d.Robot, &d.MsgType, &status, &errcode, &errmsg, &errStr, &response, &d.DurationMS, &d.CreatedAt)
	if err != nil {
		return nil, err
	}

	d.Status = models.DeliveryStatus(status)
	if errcode.Valid {
		code := int(errcode.Int64)
		d.ErrCode = &code
	}
	d.ErrMsg = errmsg.String
	d.Error = errStr.String
	if response.Valid && response.String != "" {
		if err := go_json.Unmarshal([]byte(response.String), &d.Response); err != nil {
			return nil, err
		}
	}
	return &d, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
