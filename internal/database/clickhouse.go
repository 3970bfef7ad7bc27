package database

import (
	"context"
	"database/sql"
	"embed"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/golang-migrate/migrate/v4"
	clickmigrations "github.com/golang-migrate/migrate/v4/database/clickhouse"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/oschwald/geoip2-golang"

	"github.com/Purplemerit/linkshortner-sub001/internal/types"
	"github.com/Purplemerit/linkshortner-sub001/internal/useragent"
)

//go:embed migrations/clickhouse/*.sql
var migrationsClickHouseFS embed.FS

const flushTimeout = 5 * time.Second

// Analytics buffers click events and batch-inserts them into ClickHouse.
// PushClick never blocks; a full buffer drops the event with a warning.
type Analytics struct {
	db             *sql.DB
	clicksBuffer   chan types.ClickData
	geo            *geoip2.Reader
	flushThreshold int
	flushInterval  time.Duration
	wg             sync.WaitGroup
}

func ConnectClickHouse(addr, user, pass, dbName, geoDBPath string, bufferSize, flushThreshold int, flushInterval time.Duration) (*Analytics, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
			Username: user,
			Password: pass,
		},
		DialTimeout: time.Second * 30,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err := conn.Ping(); err != nil {
		return nil, err
	}

	geodatabase, err := geoip2.Open(geoDBPath)
	if err != nil {
		return nil, err
	}

	a := &Analytics{
		db:             conn,
		clicksBuffer:   make(chan types.ClickData, bufferSize),
		geo:            geodatabase,
		flushThreshold: flushThreshold,
		flushInterval:  flushInterval,
	}

	if err := a.runMigrations(); err != nil {
		return nil, err
	}

	return a, nil
}

func (a *Analytics) runMigrations() error {
	d, err := iofs.New(migrationsClickHouseFS, "migrations/clickhouse")
	if err != nil {
		return err
	}

	driver, err := clickmigrations.WithInstance(a.db, &clickmigrations.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance(
		"iofs", d,
		"clickhouse", driver,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	slog.Info("ClickHouse migrations applied successfully")
	return nil
}

// Start launches the background worker. The worker drains and flushes the
// remaining buffer when ctx is cancelled.
func (a *Analytics) Start(ctx context.Context) {
	a.wg.Add(1)
	go a.worker(ctx)
}

func (a *Analytics) worker(ctx context.Context) {
	defer a.wg.Done()

	var buffer []types.ClickData
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-a.clicksBuffer:
			buffer = append(buffer, data)
			if len(buffer) >= a.flushThreshold {
				a.flush(buffer)
				buffer = nil
			}
		case <-ticker.C:
			if len(buffer) > 0 {
				a.flush(buffer)
				buffer = nil
			}
		case <-ctx.Done():
			for {
				select {
				case data := <-a.clicksBuffer:
					buffer = append(buffer, data)
				default:
					if len(buffer) > 0 {
						a.flush(buffer)
					}
					return
				}
			}
		}
	}
}

func (a *Analytics) flush(clicks []types.ClickData) {
	if err := a.recordClicks(clicks); err != nil {
		slog.Warn("RecordClicks error", "error", err, "count", len(clicks))
	}
}

// Close waits for the worker to finish and closes the connections.
func (a *Analytics) Close() error {
	a.wg.Wait()
	if a.geo != nil {
		if err := a.geo.Close(); err != nil {
			return err
		}
	}
	return a.db.Close()
}

func (a *Analytics) recordClicks(clicks []types.ClickData) error {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO clicks (link_id, short_code, country, city, device, browser, os, referer, client_id, clicked_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, data := range clicks {
		event := a.enrich(data)
		_, err = stmt.ExecContext(ctx,
			event.LinkID, event.ShortCode, event.Country, event.City,
			event.Device, event.Browser, event.OS,
			event.Referer, event.ClientID, event.ClickedAt)
		if err != nil {
			slog.Error("failed to exec insert for click", "error", err, "short_code", data.ShortCode)
			continue
		}
	}
	return tx.Commit()
}

// enrich resolves geo from the client IP and classifies the user agent.
// Lookups that fail leave the "Unknown" defaults in place.
func (a *Analytics) enrich(data types.ClickData) types.ClickEvent {
	event := types.ClickEvent{
		LinkID:    data.LinkID,
		ShortCode: data.ShortCode,
		Country:   "Unknown",
		City:      "Unknown",
		Referer:   data.Referer,
		ClientID:  data.IP,
		ClickedAt: data.ClickedAt,
	}

	info := useragent.Parse(data.UserAgent)
	event.Device = info.Device
	event.Browser = info.Browser
	event.OS = info.OS

	ip := net.ParseIP(data.IP)
	if ip != nil {
		record, err := a.geo.City(ip)
		if err == nil {
			if name, ok := record.City.Names["en"]; ok && name != "" {
				event.City = name
			}
			if name, ok := record.Country.Names["en"]; ok && name != "" {
				event.Country = name
			}
		}
	}

	return event
}

// PushClick queues a click for the background worker. Never blocks.
func (a *Analytics) PushClick(data types.ClickData) bool {
	select {
	case a.clicksBuffer <- data:
		return true
	default:
		slog.Warn("Analytics buffer full, dropping click data", "short_code", data.ShortCode)
		return false
	}
}

// ClicksByCountry returns the per-country click breakdown for a short code.
func (a *Analytics) ClicksByCountry(ctx context.Context, code string) ([]types.CountryStat, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT country, count() AS clicks FROM clicks WHERE short_code = ? GROUP BY country ORDER BY clicks DESC",
		code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []types.CountryStat
	for rows.Next() {
		var s types.CountryStat
		if err := rows.Scan(&s.Country, &s.Clicks); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// ClicksByDevice returns the per-device click breakdown for a short code.
func (a *Analytics) ClicksByDevice(ctx context.Context, code string) ([]types.DeviceStat, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT device, count() AS clicks FROM clicks WHERE short_code = ? GROUP BY device ORDER BY clicks DESC",
		code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []types.DeviceStat
	for rows.Next() {
		var s types.DeviceStat
		if err := rows.Scan(&s.Device, &s.Clicks); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
