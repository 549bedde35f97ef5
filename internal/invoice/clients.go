package invoice

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"invoicer/internal/core"
	applog "invoicer/internal/log"
)

// ImportedClientName names clients created from an import row that only
// carried an email address.
const ImportedClientName = "Imported Client"

// CreateClient validates and stores a new client.
func (e *Engine) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	if err := c.Validate(); err != nil {
		return core.Client{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c.ID = e.newID()
	if c.UserID == "" {
		c.UserID = e.currentUser(ctx)
	}
	c.CreatedAt = e.now().UTC()

	if _, err := e.clients.Update(ctx, func(list *[]core.Client) error {
		*list = append(*list, c)
		return nil
	}); err != nil {
		return core.Client{}, fmt.Errorf("create client: %w", err)
	}

	e.logger.InfoContext(ctx, "Client created", applog.FieldClientID, c.ID)
	return c, nil
}

// ListClients returns every stored client.
func (e *Engine) ListClients(ctx context.Context) ([]core.Client, error) {
	list, _, _, err := e.clients.Load(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []core.Client{}
	}
	return list, nil
}

// GetClient returns the client with the given id.
func (e *Engine) GetClient(ctx context.Context, id string) (core.Client, error) {
	list, err := e.ListClients(ctx)
	if err != nil {
		return core.Client{}, err
	}
	for _, c := range list {
		if c.ID == id {
			return c, nil
		}
	}
	return core.Client{}, fmt.Errorf("%w: %s", core.ErrClientNotFound, id)
}

// matchClient finds a client whose name or email equals the given values,
// ignoring case. Empty values never match.
func matchClient(clients []core.Client, name, email string) (core.Client, bool) {
	for _, c := range clients {
		if name != "" && strings.EqualFold(c.Name, name) {
			return c, true
		}
		if email != "" && strings.EqualFold(c.Email, email) {
			return c, true
		}
	}
	return core.Client{}, false
}

// clientRef is a free text client reference from an import row.
type clientRef struct {
	name  string
	email string
}

// resolveClients returns a client id for every reference, creating clients
// for references that match none. Created clients are persisted in a single
// write before any invoice refers to them.
func (e *Engine) resolveClients(ctx context.Context, refs map[int]clientRef) (map[int]string, error) {
	ids := make(map[int]string, len(refs))
	if len(refs) == 0 {
		return ids, nil
	}

	order := make([]int, 0, len(refs))
	for idx := range refs {
		order = append(order, idx)
	}
	sort.Ints(order)

	userID := e.currentUser(ctx)
	now := e.now().UTC()
	var created int
	_, err := e.clients.Update(ctx, func(list *[]core.Client) error {
		created = 0
		for _, idx := range order {
			ref := refs[idx]
			if c, ok := matchClient(*list, ref.name, ref.email); ok {
				ids[idx] = c.ID
				continue
			}
			name := ref.name
			if name == "" {
				name = ImportedClientName
			}
			c := core.Client{
				ID:        e.newID(),
				UserID:    userID,
				Name:      name,
				Email:     ref.email,
				CreatedAt: now,
			}
			*list = append(*list, c)
			ids[idx] = c.ID
			created++
		}
		if created == 0 {
			return errNoChange
		}
		return nil
	})
	if err != nil && !isNoChange(err) {
		return nil, fmt.Errorf("resolve clients: %w", err)
	}
	if created > 0 {
		e.logger.InfoContext(ctx, "Clients created during import", applog.FieldCount, created)
	}
	return ids, nil
}
