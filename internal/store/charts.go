package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"tension-cli/internal/model"
	"tension-cli/internal/persist"
)

const (
	metaCurrentChart = "current_chart_id"

	chartsTable model.Table = "charts"
)

// Init makes sure the workspace has at least one chart and a current chart.
// It returns the current chart.
func (d *DB) Init(ctx context.Context, title string) (model.Chart, error) {
	if id, err := d.CurrentChartID(ctx); err != nil {
		return model.Chart{}, err
	} else if id != "" {
		if c, err := d.Chart(ctx, id); err == nil {
			return c, nil
		}
	}
	charts, err := d.Charts(ctx)
	if err != nil {
		return model.Chart{}, err
	}
	var c model.Chart
	if len(charts) > 0 {
		c = charts[0]
	} else {
		if strings.TrimSpace(title) == "" {
			title = "Main"
		}
		if c, err = d.CreateChart(ctx, title, nil); err != nil {
			return model.Chart{}, err
		}
	}
	if err := d.setMeta(ctx, metaCurrentChart, c.ID); err != nil {
		return model.Chart{}, err
	}
	return c, nil
}

func (d *DB) CurrentChartID(ctx context.Context) (string, error) {
	return d.meta(ctx, metaCurrentChart)
}

func (d *DB) SetCurrentChart(ctx context.Context, id string) error {
	if _, err := d.Chart(ctx, id); err != nil {
		return err
	}
	return d.setMeta(ctx, metaCurrentChart, id)
}

func (d *DB) CreateChart(ctx context.Context, title string, parentTensionID *string) (model.Chart, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Chart{}, errors.New("chart title is required")
	}
	if parentTensionID != nil {
		var n int
		if err := d.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tensions WHERE id = ?`, *parentTensionID).Scan(&n); err != nil {
			return model.Chart{}, err
		}
		if n == 0 {
			return model.Chart{}, persist.NotFoundError{Table: model.TableTensions, ID: *parentTensionID}
		}
	}
	id, err := newRandomID("chart")
	if err != nil {
		return model.Chart{}, err
	}
	now := d.now().UTC()
	if _, err := d.db.ExecContext(ctx, `INSERT INTO charts(id, title, parent_tension_id, created_at_unixms) VALUES(?, ?, ?, ?)`,
		id, title, nullable(parentTensionID), now.UnixMilli()); err != nil {
		return model.Chart{}, err
	}
	return model.Chart{ID: id, Title: title, ParentTensionID: model.StrPtr(model.Deref(parentTensionID)), CreatedAt: fromUnixMs(now.UnixMilli())}, nil
}

func (d *DB) Chart(ctx context.Context, id string) (model.Chart, error) {
	var (
		c      model.Chart
		parent sql.NullString
		ms     int64
	)
	err := d.db.QueryRowContext(ctx, `SELECT id, title, parent_tension_id, created_at_unixms FROM charts WHERE id = ?`, strings.TrimSpace(id)).
		Scan(&c.ID, &c.Title, &parent, &ms)
	if err == sql.ErrNoRows {
		return model.Chart{}, persist.NotFoundError{Table: chartsTable, ID: id}
	}
	if err != nil {
		return model.Chart{}, err
	}
	c.ParentTensionID = fromNull(parent)
	c.CreatedAt = fromUnixMs(ms)
	return c, nil
}

func (d *DB) Charts(ctx context.Context) ([]model.Chart, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, title, parent_tension_id, created_at_unixms FROM charts ORDER BY created_at_unixms, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Chart{}
	for rows.Next() {
		var (
			c      model.Chart
			parent sql.NullString
			ms     int64
		)
		if err := rows.Scan(&c.ID, &c.Title, &parent, &ms); err != nil {
			return nil, err
		}
		c.ParentTensionID = fromNull(parent)
		c.CreatedAt = fromUnixMs(ms)
		out = append(out, c)
	}
	return out, rows.Err()
}
