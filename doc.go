/*
Package procmeta is an administration toolkit for business-process metadata:
process types (a tree of categories), the states a process instance can
occupy and the operations that move it between states.

# Architecture

The module is split along ports and adapters:

  - pkg/domain holds the entities, the type forest with cycle prevention,
    selection state and validation.
  - pkg/changes is the pending-changes buffer: per-kind create, update and
    delete sets merged over server lists and flushed as one batch.
  - pkg/console is the editing session a front end drives. It owns the
    buffer, the selection and the cached server lists.
  - pkg/client talks to a backend over REST; pkg/adapters/http is that
    backend, serving any ports.Catalog.
  - Catalogs live in pkg/adapters/memory and internal/adapters/sqlstore
    (SQLite, Postgres). Preferences such as the last selection and the theme
    go to memory, files or Redis.

# Usage

	api := client.New("http://localhost:8000")
	s := console.New(api, console.WithSaveMode(console.SaveBatch))
	if err := s.Refresh(ctx); err != nil {
		return err
	}
	t, _ := s.AddRootType(domain.ProcessType{Code: "T1", NameEN: "Orders", NameRU: "Заказы"})
	_, _ = s.CreateState(domain.ProcessState{TypeID: t.ID, Code: "NEW", NameEN: "New", NameRU: "Новый", Start: true})
	if err := s.Save(ctx); err != nil {
		return err
	}

The procmeta command wires all of this together; see cmd/procmeta.
*/
package procmeta
