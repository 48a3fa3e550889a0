package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/rootword-dev/rootword/internal/cli/client"
	"github.com/rootword-dev/rootword/internal/guard"
)

// render prints the view registered at path. Callers have already applied
// the guard.
func (rt *Runtime) render(t *target, path string) error {
	route, ok := t.router.Lookup(path)
	if !ok {
		return fmt.Errorf("unknown view %s", path)
	}

	c := rt.client(t)

	switch route.Name {
	case guard.RouteLogin:
		rt.printf("Run 'rootword login' to sign in to %s (%s)\n", t.server.Alias, t.server.Address)
		return nil
	case guard.RouteRootWordList:
		return rt.listRootWords(c, client.ListRootWordsRequest{})
	case guard.RouteRootWordApply:
		req := client.ListRootWordsRequest{}
		if t.session.User != nil {
			req.ApplyUser = t.session.User.Username
		}
		return rt.listRootWords(c, req)
	case guard.RouteDDLCheck:
		rt.printf("Check a CREATE TABLE statement with 'rootword ddl check <file>' or pipe it on stdin\n")
		return nil
	case guard.RouteRootWordAudit:
		return rt.listRootWords(c, client.ListRootWordsRequest{Status: "pending_audit"})
	case guard.RouteUserManage:
		return rt.listUsers(c, 0, 0, "")
	default:
		return fmt.Errorf("view %s has no renderer", route.Name)
	}
}

func (rt *Runtime) listRootWords(c *client.Client, req client.ListRootWordsRequest) error {
	page, err := c.ListRootWords(req)
	if err != nil {
		return err
	}

	if len(page.List) == 0 {
		rt.printf("No root words found.\n")
		return nil
	}

	w := tabwriter.NewWriter(rt.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWORD\tMYSQL\tDORIS\tCLICKHOUSE\tSTATUS\tAPPLIED BY")
	fmt.Fprintln(w, "──\t────\t─────\t─────\t──────────\t──────\t──────────")
	for _, word := range page.List {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			word.ID,
			word.WordName,
			word.MySQLType,
			word.DorisType,
			word.ClickHouseType,
			word.Status,
			word.ApplyUser,
		)
	}
	w.Flush()

	rt.printf("\nPage %d, %d of %d root words\n", page.PageNum, len(page.List), page.Total)
	return nil
}

func (rt *Runtime) listUsers(c *client.Client, pageNum, pageSize int, username string) error {
	page, err := c.ListUsers(pageNum, pageSize, username)
	if err != nil {
		return err
	}

	if len(page.List) == 0 {
		rt.printf("No users found.\n")
		return nil
	}

	w := tabwriter.NewWriter(rt.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tROLE\tCREATED AT")
	fmt.Fprintln(w, "──\t────────\t────\t──────────")
	for _, u := range page.List {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, u.CreateTime.Format("2006-01-02 15:04"))
	}
	w.Flush()

	rt.printf("\nPage %d, %d of %d users\n", page.PageNum, len(page.List), page.Total)
	return nil
}
