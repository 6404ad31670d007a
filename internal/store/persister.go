package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tension-cli/internal/model"
	"tension-cli/internal/persist"
)

const (
	linkVision  = "vision"
	linkReality = "reality"
)

func tableName(t model.Table) (string, error) {
	switch t {
	case model.TableAreas, model.TableVisions, model.TableRealities, model.TableTensions, model.TableActions:
		return string(t), nil
	default:
		return "", fmt.Errorf("unknown table %q", t)
	}
}

func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func expectRow(res sql.Result, table model.Table, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return persist.NotFoundError{Table: table, ID: id}
	}
	return nil
}

// SetOrder writes all ordering keys in one transaction. A row that is missing
// or no longer matches the filter fails the whole call.
func (d *DB) SetOrder(ctx context.Context, table model.Table, items []persist.OrderEntry, filter persist.GroupFilter) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	q := `UPDATE ` + name + ` SET sort_order = ? WHERE id = ?`
	var extra []any
	if filter.ChartID != "" {
		q += ` AND chart_id = ?`
		extra = append(extra, filter.ChartID)
	}
	if filter.ByArea && table != model.TableAreas {
		q += ` AND area_id IS ?`
		extra = append(extra, nullable(filter.AreaID))
	}
	if filter.ByTension && table == model.TableActions {
		q += ` AND tension_id IS ?`
		extra = append(extra, nullable(filter.TensionID))
	}
	return d.withTx(ctx, func(tx *sql.Tx) error {
		for _, e := range items {
			args := append([]any{e.SortOrder, e.ID}, extra...)
			res, err := tx.ExecContext(ctx, q, args...)
			if err != nil {
				return err
			}
			if err := expectRow(res, table, e.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DB) MoveItem(ctx context.Context, table model.Table, id string, f persist.GroupFields) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	var (
		sets []string
		args []any
	)
	if f.SetArea {
		if table == model.TableAreas {
			return errors.New("areas have no area")
		}
		sets = append(sets, `area_id = ?`)
		args = append(args, nullable(f.AreaID))
	}
	if f.SetTension {
		if table != model.TableActions {
			return fmt.Errorf("%s cannot belong to a tension", table)
		}
		if tid := model.Deref(f.TensionID); tid != "" {
			var n int
			if err := d.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tensions WHERE id = ?`, tid).Scan(&n); err != nil {
				return err
			}
			if n == 0 {
				return persist.NotFoundError{Table: model.TableTensions, ID: tid}
			}
		}
		sets = append(sets, `tension_id = ?`)
		args = append(args, nullable(f.TensionID))
	}
	if f.SetSortOrder {
		sets = append(sets, `sort_order = ?`)
		args = append(args, f.SortOrder)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, strings.TrimSpace(id))
	res, err := d.db.ExecContext(ctx, `UPDATE `+name+` SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return expectRow(res, table, id)
}

// DeleteItem is idempotent. Deleting a tension deletes its actions and links;
// deleting an area leaves its items uncategorized.
func (d *DB) DeleteItem(ctx context.Context, table model.Table, id string) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	return d.withTx(ctx, func(tx *sql.Tx) error {
		var stmts []string
		switch table {
		case model.TableTensions:
			stmts = []string{
				`DELETE FROM actions WHERE tension_id = ?`,
				`DELETE FROM tension_links WHERE tension_id = ?`,
				`UPDATE charts SET parent_tension_id = NULL WHERE parent_tension_id = ?`,
			}
		case model.TableVisions, model.TableRealities:
			stmts = []string{`DELETE FROM tension_links WHERE item_id = ?`}
		case model.TableAreas:
			for _, t := range []string{"visions", "realities", "tensions", "actions"} {
				stmts = append(stmts, `UPDATE `+t+` SET area_id = NULL WHERE area_id = ?`)
			}
		}
		stmts = append(stmts, `DELETE FROM `+name+` WHERE id = ?`)
		for _, st := range stmts {
			if _, err := tx.ExecContext(ctx, st, id); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DB) CreateItem(ctx context.Context, table model.Table, f persist.Fields) (string, error) {
	if _, err := tableName(table); err != nil {
		return "", err
	}
	id, err := newRandomID(table.IDPrefix())
	if err != nil {
		return "", err
	}
	nowMs := d.now().UTC().UnixMilli()
	err = d.withTx(ctx, func(tx *sql.Tx) error {
		switch table {
		case model.TableAreas:
			_, err := tx.ExecContext(ctx, `INSERT INTO areas(id, chart_id, name, color, sort_order) VALUES(?, ?, ?, ?, ?)`,
				id, f.ChartID, strings.TrimSpace(f.Name), f.Color, f.SortOrder)
			return err
		case model.TableTensions:
			status := f.Status
			if status == "" {
				status = string(model.TensionActive)
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO tensions(id, chart_id, title, description, status, area_id, sort_order, created_at_unixms) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
				id, f.ChartID, f.Title, f.Description, status, nullable(f.AreaID), f.SortOrder, nowMs); err != nil {
				return err
			}
			for i, vid := range f.VisionIDs {
				if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tension_links(tension_id, kind, item_id, position) VALUES(?, ?, ?, ?)`, id, linkVision, vid, i); err != nil {
					return err
				}
			}
			for i, rid := range f.RealityIDs {
				if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO tension_links(tension_id, kind, item_id, position) VALUES(?, ?, ?, ?)`, id, linkReality, rid, i); err != nil {
					return err
				}
			}
			return nil
		case model.TableActions:
			_, err := tx.ExecContext(ctx, `INSERT INTO actions(id, chart_id, title, area_id, due_date, tension_id, done, sort_order, created_at_unixms) VALUES(?, ?, ?, ?, ?, ?, 0, ?, ?)`,
				id, f.ChartID, f.Title, nullable(f.AreaID), nullable(f.DueDate), nullable(f.TensionID), f.SortOrder, nowMs)
			return err
		default:
			_, err := tx.ExecContext(ctx, `INSERT INTO `+string(table)+`(id, chart_id, title, area_id, due_date, sort_order, created_at_unixms) VALUES(?, ?, ?, ?, ?, ?, ?)`,
				id, f.ChartID, f.Title, nullable(f.AreaID), nullable(f.DueDate), f.SortOrder, nowMs)
			return err
		}
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (d *DB) UpdateItem(ctx context.Context, table model.Table, id string, p persist.Patch) error {
	name, err := tableName(table)
	if err != nil {
		return err
	}
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		sets = append(sets, col+` = ?`)
		args = append(args, v)
	}
	switch table {
	case model.TableAreas:
		if p.Name != nil {
			set("name", strings.TrimSpace(*p.Name))
		}
		if p.Color != nil {
			set("color", *p.Color)
		}
	case model.TableTensions:
		if p.Title != nil {
			set("title", strings.TrimSpace(*p.Title))
		}
		if p.Description != nil {
			set("description", *p.Description)
		}
		if p.Status != nil {
			set("status", *p.Status)
		}
	default:
		if p.Title != nil {
			set("title", strings.TrimSpace(*p.Title))
		}
		if p.SetDueDate {
			set("due_date", nullable(p.DueDate))
		}
		if p.Done != nil && table == model.TableActions {
			set("done", boolToInt(*p.Done))
		}
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, strings.TrimSpace(id))
	res, err := d.db.ExecContext(ctx, `UPDATE `+name+` SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	return expectRow(res, table, id)
}
