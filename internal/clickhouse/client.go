package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Billy-Davies-2/championship-draft/internal/models"
)

const createDraftEvents = `
	CREATE TABLE IF NOT EXISTS draft_events (
		tournament_id String,
		match_id      String,
		account_id    String,
		kind          LowCardinality(String),
		value         String,
		phase         LowCardinality(String),
		at            DateTime64(3, 'UTC')
	)
	ENGINE = MergeTree
	ORDER BY (tournament_id, match_id, at)
`

// Client records draft events in ClickHouse and answers aggregate queries
type Client struct {
	conn driver.Conn
}

// NewClient connects, pings and makes sure the events table exists
func NewClient(addr, database, username, password string) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx := context.Background()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, createDraftEvents); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create draft_events table: %w", err)
	}

	return &Client{conn: conn}, nil
}

// RecordDraftEvents appends events in one batch
func (c *Client) RecordDraftEvents(ctx context.Context, events []models.DraftEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO draft_events")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, e := range events {
		err := batch.Append(
			e.TournamentID,
			e.MatchID,
			e.AccountID,
			string(e.Kind),
			e.Value,
			string(e.Phase),
			e.At,
		)
		if err != nil {
			batch.Abort()
			return fmt.Errorf("failed to append draft event: %w", err)
		}
	}

	return batch.Send()
}

// BanCounts returns how often each loadout has been banned, most banned first
func (c *Client) BanCounts(ctx context.Context) ([]models.BanCount, error) {
	query := `
		SELECT value, count() AS bans
		FROM draft_events
		WHERE kind = $1
		GROUP BY value
		ORDER BY bans DESC, value ASC
	`

	rows, err := c.conn.Query(ctx, query, string(models.EventBan))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.BanCount
	for rows.Next() {
		var bc models.BanCount
		if err := rows.Scan(&bc.LoadoutID, &bc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, bc)
	}

	return counts, rows.Err()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
