// Package autoreply keeps the admin-curated keyword bank and answers
// inquiries whose text contains one of the stored keywords.
package autoreply

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Mahbub143625/telegram-booking-bot/internal/database"
)

// punctRe strips everything that is not a word character or whitespace.
var punctRe = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

// Normalize lowercases the text and replaces punctuation with spaces, so
// "Hi!! Where ARE you?" matches the stored keyword "where are you".
func Normalize(s string) string {
	return strings.TrimSpace(punctRe.ReplaceAllString(strings.ToLower(s), " "))
}

// Rule maps a set of keywords to one canned answer.
type Rule struct {
	ID       int64
	Patterns []string
	Answer   string
}

// Bank stores rules in the shared database; multiple rules may coexist and
// the first one whose keyword appears in the message wins.
type Bank struct {
	db     *database.DB
	logger *zerolog.Logger
}

func New(db *database.DB, logger *zerolog.Logger) *Bank {
	return &Bank{db: db, logger: logger}
}

// Add stores a rule. Patterns are normalized on the way in; empty ones are
// dropped. Adding a rule with no usable patterns is an error.
func (b *Bank) Add(ctx context.Context, patterns []string, answer string) error {
	cleaned := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = Normalize(p); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	answer = strings.TrimSpace(answer)
	if len(cleaned) == 0 || answer == "" {
		return fmt.Errorf("autoreply rule needs at least one pattern and an answer")
	}

	raw, err := json.Marshal(cleaned)
	if err != nil {
		return fmt.Errorf("encode patterns: %w", err)
	}
	if _, err := b.db.ExecContext(ctx,
		"INSERT INTO auto_qa (patterns_json, answer) VALUES (?, ?)", string(raw), answer); err != nil {
		return fmt.Errorf("add autoreply rule: %w", err)
	}
	b.logger.Info().Strs("patterns", cleaned).Msg("autoreply rule added")
	return nil
}

// All returns every stored rule. Rows with unreadable patterns are kept with
// an empty pattern list rather than failing the whole listing.
func (b *Bank) All(ctx context.Context) ([]Rule, error) {
	rows, err := b.db.QueryContext(ctx, "SELECT id, patterns_json, answer FROM auto_qa ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list autoreply rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		var raw string
		if err := rows.Scan(&r.ID, &raw, &r.Answer); err != nil {
			return nil, fmt.Errorf("scan autoreply rule: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &r.Patterns); err != nil {
			b.logger.Warn().Int64("rule", r.ID).Err(err).Msg("unreadable patterns, skipping")
			r.Patterns = nil
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// Clear deletes the whole bank.
func (b *Bank) Clear(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, "DELETE FROM auto_qa"); err != nil {
		return fmt.Errorf("clear autoreply rules: %w", err)
	}
	return nil
}

// Match normalizes the message and returns the answer of the first rule with
// a whole-word keyword hit. ok is false when nothing matches.
func (b *Bank) Match(ctx context.Context, text string) (answer string, ok bool, err error) {
	norm := Normalize(text)
	if norm == "" {
		return "", false, nil
	}

	rules, err := b.All(ctx)
	if err != nil {
		return "", false, err
	}
	for _, r := range rules {
		for _, p := range r.Patterns {
			if p == "" {
				continue
			}
			re, err := regexp.Compile(`\b` + regexp.QuoteMeta(p) + `\b`)
			if err != nil {
				b.logger.Warn().Str("pattern", p).Err(err).Msg("bad autoreply pattern")
				continue
			}
			if re.MatchString(norm) {
				return r.Answer, true, nil
			}
		}
	}
	return "", false, nil
}
