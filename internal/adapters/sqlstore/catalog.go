package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aretw0/procmeta/pkg/domain"
	"github.com/aretw0/procmeta/pkg/ports"
	"github.com/google/uuid"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repo runs catalog queries on a database or inside a transaction.
// Rows are always drained before the next query so a single connection suffices.
type repo struct {
	q       querier
	db      *sql.DB // nil inside a transaction
	dialect Dialect
}

var _ ports.Catalog = (*repo)(nil)

func (r *repo) exec(ctx context.Context, query string, args ...any) error {
	_, err := r.q.ExecContext(ctx, r.dialect.rebind(query), args...)
	return err
}

// atomic runs fn in a transaction, joining the current one if any.
func (r *repo) atomic(ctx context.Context, fn func(r *repo) error) (retErr error) {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&repo{q: tx, dialect: r.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *repo) Atomic(ctx context.Context, fn func(tx ports.Catalog) error) error {
	return r.atomic(ctx, func(tx *repo) error { return fn(tx) })
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const typeColumns = `id, code, name_en, name_ru, attributes_table, parent_id`

func scanType(row interface{ Scan(...any) error }) (domain.ProcessType, error) {
	var (
		t             domain.ProcessType
		attrs, parent sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Code, &t.NameEN, &t.NameRU, &attrs, &parent); err != nil {
		return domain.ProcessType{}, err
	}
	t.AttributesTable = attrs.String
	t.ParentID = parent.String
	return t, nil
}

func (r *repo) ListTypes(ctx context.Context) ([]domain.ProcessType, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+typeColumns+` FROM process_types ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("select types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]domain.ProcessType, 0)
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repo) typeWhere(ctx context.Context, column, value string) (domain.ProcessType, error) {
	row := r.q.QueryRowContext(ctx, r.dialect.rebind(`SELECT `+typeColumns+` FROM process_types WHERE `+column+` = ?`), value)
	t, err := scanType(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProcessType{}, fmt.Errorf("%q: %w", value, domain.ErrTypeNotFound)
	}
	if err != nil {
		return domain.ProcessType{}, fmt.Errorf("select type: %w", err)
	}
	return t, nil
}

func (r *repo) GetType(ctx context.Context, code string) (domain.ProcessType, error) {
	return r.typeWhere(ctx, "code", code)
}

func (r *repo) CreateType(ctx context.Context, t domain.ProcessType) (domain.ProcessType, error) {
	err := r.atomic(ctx, func(r *repo) error {
		if _, err := r.GetType(ctx, t.Code); err == nil {
			return fmt.Errorf("%q: %w", t.Code, domain.ErrDuplicateCode)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		} else if _, err := r.typeWhere(ctx, "id", t.ID); err == nil {
			return fmt.Errorf("type %q: %w", t.ID, domain.ErrDuplicateID)
		}
		if err := r.checkParent(ctx, t); err != nil {
			return err
		}
		return r.exec(ctx, `INSERT INTO process_types (`+typeColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, t.Code, t.NameEN, t.NameRU, nullable(t.AttributesTable), nullable(t.ParentID))
	})
	if err != nil {
		return domain.ProcessType{}, err
	}
	return t, nil
}

func (r *repo) checkParent(ctx context.Context, t domain.ProcessType) error {
	if t.ParentID == "" {
		return nil
	}
	stored, err := r.ListTypes(ctx)
	if err != nil {
		return err
	}
	return domain.CheckParent(stored, t)
}

func (r *repo) UpdateType(ctx context.Context, code string, t domain.ProcessType) (domain.ProcessType, error) {
	err := r.atomic(ctx, func(r *repo) error {
		current, err := r.GetType(ctx, code)
		if err != nil {
			return err
		}
		t.ID = current.ID
		if t.Code == "" {
			t.Code = current.Code
		}
		if t.Code != current.Code {
			if _, err := r.GetType(ctx, t.Code); err == nil {
				return fmt.Errorf("%q: %w", t.Code, domain.ErrDuplicateCode)
			}
		}
		if err := r.checkParent(ctx, t); err != nil {
			return err
		}
		return r.exec(ctx, `UPDATE process_types SET code = ?, name_en = ?, name_ru = ?, attributes_table = ?, parent_id = ? WHERE id = ?`,
			t.Code, t.NameEN, t.NameRU, nullable(t.AttributesTable), nullable(t.ParentID), t.ID)
	})
	if err != nil {
		return domain.ProcessType{}, err
	}
	return t, nil
}

func (r *repo) DeleteType(ctx context.Context, code string) error {
	return r.atomic(ctx, func(r *repo) error {
		t, err := r.GetType(ctx, code)
		if err != nil {
			return err
		}
		stmts := []string{
			`DELETE FROM operation_states WHERE operation_id IN (SELECT id FROM process_operations WHERE type_id = ?)`,
			`DELETE FROM operation_states WHERE state_id IN (SELECT id FROM process_states WHERE type_id = ?)`,
			`DELETE FROM process_operations WHERE type_id = ?`,
			`DELETE FROM process_states WHERE type_id = ?`,
			`UPDATE process_types SET parent_id = NULL WHERE parent_id = ?`,
			`DELETE FROM process_types WHERE id = ?`,
		}
		for _, stmt := range stmts {
			if err := r.exec(ctx, stmt, t.ID); err != nil {
				return fmt.Errorf("delete type %q: %w", code, err)
			}
		}
		return nil
	})
}

func (r *repo) requireType(ctx context.Context, id string) error {
	_, err := r.typeWhere(ctx, "id", id)
	return err
}

const stateColumns = `id, type_id, code, name_en, name_ru, color_code, allow_edit, allow_delete, start, operation_list_script`

func scanState(row interface{ Scan(...any) error }) (domain.ProcessState, error) {
	var (
		s             domain.ProcessState
		color, script sql.NullString
	)
	err := row.Scan(&s.ID, &s.TypeID, &s.Code, &s.NameEN, &s.NameRU, &color,
		&s.AllowEdit, &s.AllowDelete, &s.Start, &script)
	if err != nil {
		return domain.ProcessState{}, err
	}
	s.ColorCode = color.String
	s.OperationListScript = script.String
	return s, nil
}

func (r *repo) ListStates(ctx context.Context, typeID string) ([]domain.ProcessState, error) {
	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(`SELECT `+stateColumns+` FROM process_states WHERE type_id = ? ORDER BY code`), typeID)
	if err != nil {
		return nil, fmt.Errorf("select states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]domain.ProcessState, 0)
	for rows.Next() {
		s, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repo) GetState(ctx context.Context, id string) (domain.ProcessState, error) {
	row := r.q.QueryRowContext(ctx, r.dialect.rebind(`SELECT `+stateColumns+` FROM process_states WHERE id = ?`), id)
	s, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProcessState{}, fmt.Errorf("%q: %w", id, domain.ErrStateNotFound)
	}
	if err != nil {
		return domain.ProcessState{}, fmt.Errorf("select state: %w", err)
	}
	return s, nil
}

func (r *repo) CreateState(ctx context.Context, s domain.ProcessState) (domain.ProcessState, error) {
	err := r.atomic(ctx, func(r *repo) error {
		if err := r.requireType(ctx, s.TypeID); err != nil {
			return err
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		} else if _, err := r.GetState(ctx, s.ID); err == nil {
			return fmt.Errorf("state %q: %w", s.ID, domain.ErrDuplicateID)
		}
		return r.exec(ctx, `INSERT INTO process_states (`+stateColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.TypeID, s.Code, s.NameEN, s.NameRU, nullable(s.ColorCode),
			s.AllowEdit, s.AllowDelete, s.Start, nullable(s.OperationListScript))
	})
	if err != nil {
		return domain.ProcessState{}, err
	}
	return s, nil
}

func (r *repo) UpdateState(ctx context.Context, id string, s domain.ProcessState) (domain.ProcessState, error) {
	err := r.atomic(ctx, func(r *repo) error {
		current, err := r.GetState(ctx, id)
		if err != nil {
			return err
		}
		s.ID = id
		if s.TypeID == "" {
			s.TypeID = current.TypeID
		}
		if err := r.requireType(ctx, s.TypeID); err != nil {
			return err
		}
		return r.exec(ctx, `UPDATE process_states SET type_id = ?, code = ?, name_en = ?, name_ru = ?, color_code = ?,
			allow_edit = ?, allow_delete = ?, start = ?, operation_list_script = ? WHERE id = ?`,
			s.TypeID, s.Code, s.NameEN, s.NameRU, nullable(s.ColorCode),
			s.AllowEdit, s.AllowDelete, s.Start, nullable(s.OperationListScript), id)
	})
	if err != nil {
		return domain.ProcessState{}, err
	}
	return s, nil
}

func (r *repo) DeleteState(ctx context.Context, id string) error {
	return r.atomic(ctx, func(r *repo) error {
		if _, err := r.GetState(ctx, id); err != nil {
			return err
		}
		if err := r.exec(ctx, `DELETE FROM operation_states WHERE state_id = ?`, id); err != nil {
			return fmt.Errorf("unlink state %q: %w", id, err)
		}
		if err := r.exec(ctx, `DELETE FROM process_states WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete state %q: %w", id, err)
		}
		return nil
	})
}

const operationColumns = `id, type_id, code, name_en, name_ru, icon, resource_url, availability_condition,
	cancel, move_to_state_script, workflow, database_name`

func scanOperation(row interface{ Scan(...any) error }) (domain.ProcessOperation, error) {
	var (
		o                                   domain.ProcessOperation
		icon, url, cond, move, flow, dbName sql.NullString
	)
	err := row.Scan(&o.ID, &o.TypeID, &o.Code, &o.NameEN, &o.NameRU, &icon, &url, &cond,
		&o.Cancel, &move, &flow, &dbName)
	if err != nil {
		return domain.ProcessOperation{}, err
	}
	o.Icon = icon.String
	o.ResourceURL = url.String
	o.AvailabilityCondition = cond.String
	o.MoveToStateScript = move.String
	o.Workflow = flow.String
	o.Database = dbName.String
	return o, nil
}

func (r *repo) links(ctx context.Context, operationID string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(`SELECT state_id FROM operation_states WHERE operation_id = ? ORDER BY ord`), operationID)
	if err != nil {
		return nil, fmt.Errorf("select operation states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan operation state: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repo) ListOperations(ctx context.Context, typeID string) ([]domain.ProcessOperation, error) {
	rows, err := r.q.QueryContext(ctx, r.dialect.rebind(`SELECT `+operationColumns+` FROM process_operations WHERE type_id = ? ORDER BY code`), typeID)
	if err != nil {
		return nil, fmt.Errorf("select operations: %w", err)
	}
	out := make([]domain.ProcessOperation, 0)
	for rows.Next() {
		o, err := scanOperation(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for i := range out {
		if out[i].AvailableStateIDs, err = r.links(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *repo) GetOperation(ctx context.Context, id string) (domain.ProcessOperation, error) {
	row := r.q.QueryRowContext(ctx, r.dialect.rebind(`SELECT `+operationColumns+` FROM process_operations WHERE id = ?`), id)
	o, err := scanOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ProcessOperation{}, fmt.Errorf("%q: %w", id, domain.ErrOperationNotFound)
	}
	if err != nil {
		return domain.ProcessOperation{}, fmt.Errorf("select operation: %w", err)
	}
	if o.AvailableStateIDs, err = r.links(ctx, id); err != nil {
		return domain.ProcessOperation{}, err
	}
	return o, nil
}

func (r *repo) CreateOperation(ctx context.Context, o domain.ProcessOperation) (domain.ProcessOperation, error) {
	err := r.atomic(ctx, func(r *repo) error {
		if err := r.requireType(ctx, o.TypeID); err != nil {
			return err
		}
		if o.ID == "" {
			o.ID = uuid.NewString()
		} else if _, err := r.GetOperation(ctx, o.ID); err == nil {
			return fmt.Errorf("operation %q: %w", o.ID, domain.ErrDuplicateID)
		}
		err := r.exec(ctx, `INSERT INTO process_operations (`+operationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, o.TypeID, o.Code, o.NameEN, o.NameRU, nullable(o.Icon), nullable(o.ResourceURL),
			nullable(o.AvailabilityCondition), o.Cancel, nullable(o.MoveToStateScript),
			nullable(o.Workflow), nullable(o.Database))
		if err != nil {
			return fmt.Errorf("insert operation: %w", err)
		}
		return r.setLinks(ctx, o.ID, o.AvailableStateIDs)
	})
	if err != nil {
		return domain.ProcessOperation{}, err
	}
	return o.Clone(), nil
}

func (r *repo) UpdateOperation(ctx context.Context, id string, o domain.ProcessOperation) (domain.ProcessOperation, error) {
	err := r.atomic(ctx, func(r *repo) error {
		current, err := r.GetOperation(ctx, id)
		if err != nil {
			return err
		}
		o.ID = id
		if o.TypeID == "" {
			o.TypeID = current.TypeID
		}
		if err := r.requireType(ctx, o.TypeID); err != nil {
			return err
		}
		err = r.exec(ctx, `UPDATE process_operations SET type_id = ?, code = ?, name_en = ?, name_ru = ?, icon = ?,
			resource_url = ?, availability_condition = ?, cancel = ?, move_to_state_script = ?, workflow = ?,
			database_name = ? WHERE id = ?`,
			o.TypeID, o.Code, o.NameEN, o.NameRU, nullable(o.Icon), nullable(o.ResourceURL),
			nullable(o.AvailabilityCondition), o.Cancel, nullable(o.MoveToStateScript),
			nullable(o.Workflow), nullable(o.Database), id)
		if err != nil {
			return fmt.Errorf("update operation: %w", err)
		}
		return r.setLinks(ctx, id, o.AvailableStateIDs)
	})
	if err != nil {
		return domain.ProcessOperation{}, err
	}
	return o.Clone(), nil
}

func (r *repo) DeleteOperation(ctx context.Context, id string) error {
	return r.atomic(ctx, func(r *repo) error {
		if _, err := r.GetOperation(ctx, id); err != nil {
			return err
		}
		if err := r.exec(ctx, `DELETE FROM operation_states WHERE operation_id = ?`, id); err != nil {
			return fmt.Errorf("unlink operation %q: %w", id, err)
		}
		if err := r.exec(ctx, `DELETE FROM process_operations WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete operation %q: %w", id, err)
		}
		return nil
	})
}

func (r *repo) SetOperationStates(ctx context.Context, operationID string, stateIDs []string) error {
	return r.atomic(ctx, func(r *repo) error {
		if _, err := r.GetOperation(ctx, operationID); err != nil {
			return err
		}
		return r.setLinks(ctx, operationID, stateIDs)
	})
}

// setLinks replaces the links of an operation. Callers run it inside atomic.
func (r *repo) setLinks(ctx context.Context, operationID string, stateIDs []string) error {
	for _, id := range stateIDs {
		if _, err := r.GetState(ctx, id); err != nil {
			return err
		}
	}
	if err := r.exec(ctx, `DELETE FROM operation_states WHERE operation_id = ?`, operationID); err != nil {
		return fmt.Errorf("clear operation states: %w", err)
	}
	seen := make(map[string]bool, len(stateIDs))
	for i, id := range stateIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := r.exec(ctx, `INSERT INTO operation_states (operation_id, state_id, ord) VALUES (?, ?, ?)`, operationID, id, i); err != nil {
			return fmt.Errorf("link operation state: %w", err)
		}
	}
	return nil
}
