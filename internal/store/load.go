package store

import (
	"context"
	"database/sql"
	"strings"

	"tension-cli/internal/board"
	"tension-cli/internal/model"
)

// Load reads one chart into a board snapshot, plus the visions of charts that
// were spawned from its tensions.
func (d *DB) Load(ctx context.Context, chartID string) (board.Snapshot, error) {
	chartID = strings.TrimSpace(chartID)
	if _, err := d.Chart(ctx, chartID); err != nil {
		return board.Snapshot{}, err
	}
	s := board.Snapshot{ChartID: chartID}

	areas, err := d.loadAreas(ctx, chartID)
	if err != nil {
		return board.Snapshot{}, err
	}
	s.Areas = areas

	if s.Visions, err = d.loadItems(ctx, model.TableVisions, `WHERE chart_id = ?`, chartID); err != nil {
		return board.Snapshot{}, err
	}
	if s.Realities, err = d.loadItems(ctx, model.TableRealities, `WHERE chart_id = ?`, chartID); err != nil {
		return board.Snapshot{}, err
	}
	if s.Tensions, err = d.loadTensions(ctx, chartID); err != nil {
		return board.Snapshot{}, err
	}

	actions, err := d.loadItems(ctx, model.TableActions, `WHERE chart_id = ?`, chartID)
	if err != nil {
		return board.Snapshot{}, err
	}
	byTension := map[string]int{}
	for i := range s.Tensions {
		byTension[s.Tensions[i].ID] = i
	}
	for _, a := range actions {
		if ti, ok := byTension[model.Deref(a.TensionID)]; ok {
			s.Tensions[ti].Actions = append(s.Tensions[ti].Actions, a)
			continue
		}
		s.LooseActions = append(s.LooseActions, a)
	}

	if s.ChildVisions, err = d.loadItems(ctx, model.TableVisions,
		`WHERE chart_id IN (SELECT c.id FROM charts c JOIN tensions t ON t.id = c.parent_tension_id WHERE t.chart_id = ?)`, chartID); err != nil {
		return board.Snapshot{}, err
	}
	return s, nil
}

func (d *DB) loadAreas(ctx context.Context, chartID string) ([]model.Area, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT id, chart_id, name, color, sort_order FROM areas WHERE chart_id = ? ORDER BY sort_order, id`, chartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Area
	for rows.Next() {
		var a model.Area
		if err := rows.Scan(&a.ID, &a.ChartID, &a.Name, &a.Color, &a.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (d *DB) loadItems(ctx context.Context, table model.Table, where string, args ...any) ([]model.Item, error) {
	cols := `id, chart_id, title, area_id, due_date, sort_order, created_at_unixms`
	if table == model.TableActions {
		cols += `, tension_id, done`
	}
	rows, err := d.db.QueryContext(ctx, `SELECT `+cols+` FROM `+string(table)+` `+where+` ORDER BY sort_order, created_at_unixms, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		var (
			it          model.Item
			area, due   sql.NullString
			tension     sql.NullString
			done        int
			createdAtMs int64
		)
		dest := []any{&it.ID, &it.ChartID, &it.Title, &area, &due, &it.SortOrder, &createdAtMs}
		if table == model.TableActions {
			dest = append(dest, &tension, &done)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		it.AreaID = fromNull(area)
		it.DueDate = fromNull(due)
		it.TensionID = fromNull(tension)
		it.Done = done != 0
		it.CreatedAt = fromUnixMs(createdAtMs)
		out = append(out, it)
	}
	return out, rows.Err()
}

func (d *DB) loadTensions(ctx context.Context, chartID string) ([]model.Tension, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT t.id, t.chart_id, t.title, t.description, t.status, t.area_id, t.sort_order, t.created_at_unixms,
		(SELECT c.id FROM charts c WHERE c.parent_tension_id = t.id ORDER BY c.created_at_unixms LIMIT 1)
		FROM tensions t WHERE t.chart_id = ? ORDER BY t.sort_order, t.created_at_unixms, t.id`, chartID)
	if err != nil {
		return nil, err
	}
	var out []model.Tension
	for rows.Next() {
		var (
			t           model.Tension
			status      string
			area, child sql.NullString
			createdAtMs int64
		)
		if err := rows.Scan(&t.ID, &t.ChartID, &t.Title, &t.Description, &status, &area, &t.SortOrder, &createdAtMs, &child); err != nil {
			rows.Close()
			return nil, err
		}
		t.Status = model.TensionStatus(status)
		t.AreaID = fromNull(area)
		t.ChildChartID = fromNull(child)
		t.CreatedAt = fromUnixMs(createdAtMs)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Links are read after the tension cursor is closed: the pool holds one connection.
	for i := range out {
		links, err := d.db.QueryContext(ctx, `SELECT kind, item_id FROM tension_links WHERE tension_id = ? ORDER BY position, item_id`, out[i].ID)
		if err != nil {
			return nil, err
		}
		for links.Next() {
			var kind, itemID string
			if err := links.Scan(&kind, &itemID); err != nil {
				links.Close()
				return nil, err
			}
			switch kind {
			case linkVision:
				out[i].VisionIDs = append(out[i].VisionIDs, itemID)
			case linkReality:
				out[i].RealityIDs = append(out[i].RealityIDs, itemID)
			}
		}
		err = links.Err()
		links.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
