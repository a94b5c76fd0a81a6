package gh

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
)

// Team is an organization team as returned by the teams API.
type Team struct {
	ID   int64  `json:"id"`
	Slug string `json:"slug"`
}

// ListTeams returns all teams in the organization. One page of 100 covers
// the organizations this tool is used with.
func (c *Client) ListTeams(ctx context.Context) ([]Team, error) {
	var teams []Team
	path := fmt.Sprintf("/orgs/%s/teams?per_page=100", url.PathEscape(c.org))
	if err := c.do(ctx, "GET", path, nil, &teams); err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	return teams, nil
}

// ResolveTeamIDs maps team slugs to their numeric IDs. Unknown slugs are an
// error: inviting someone to a misspelled team should fail loudly, not
// silently invite them to fewer teams.
func (c *Client) ResolveTeamIDs(ctx context.Context, slugs []string) ([]int64, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	teams, err := c.ListTeams(ctx)
	if err != nil {
		return nil, err
	}

	bySlug := make(map[string]int64, len(teams))
	for _, t := range teams {
		bySlug[t.Slug] = t.ID
	}

	ids := make([]int64, 0, len(slugs))
	for _, slug := range slugs {
		id, ok := bySlug[slug]
		if !ok {
			return nil, fmt.Errorf("no team with slug %q in %s", slug, c.org)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Invite creates an organization invitation for email with a default member
// role, optionally scoped to teams.
func (c *Client) Invite(ctx context.Context, email string, teamIDs []int64) error {
	body := map[string]any{
		"email": email,
		"role":  "direct_member",
	}
	if len(teamIDs) > 0 {
		body["team_ids"] = teamIDs
	}
	path := fmt.Sprintf("/orgs/%s/invitations", url.PathEscape(c.org))
	if err := c.do(ctx, "POST", path, body, nil); err != nil {
		return fmt.Errorf("inviting %s: %w", email, err)
	}
	return nil
}

// AssignTeam adds a username to a team as a member.
func (c *Client) AssignTeam(ctx context.Context, username, teamSlug string) error {
	path := fmt.Sprintf("/orgs/%s/teams/%s/memberships/%s",
		url.PathEscape(c.org), url.PathEscape(teamSlug), url.PathEscape(username))
	body := map[string]string{"role": "member"}
	if err := c.do(ctx, "PUT", path, body, nil); err != nil {
		return fmt.Errorf("assigning %s to team %s: %w", username, teamSlug, err)
	}
	return nil
}

// Assignment pairs a username with the team slug it belongs to.
type Assignment struct {
	Username string
	TeamSlug string
}

// ReadAssignments parses a CSV of username,team rows.
func ReadAssignments(r io.Reader) ([]Assignment, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var assignments []Assignment
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading assignments csv: %w", err)
		}
		assignments = append(assignments, Assignment{Username: row[0], TeamSlug: row[1]})
	}
	return assignments, nil
}
