package badwords

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

//go:embed seed.yaml
var seedYAML []byte

const DefaultCacheTTL = 5 * time.Minute

// BadWordRepo stores operator-maintained category words. CategoryWords is cached per locale.
type BadWordRepo interface {
	CategoryWords(ctx context.Context, locale string) (map[string]string, error)
	List(dbc dbctx.Context, locale string) ([]*moderation.BadWord, error)
	Upsert(dbc dbctx.Context, words []*moderation.BadWord) error
	SetActive(dbc dbctx.Context, word, category, locale string, active bool) error
	Seed(dbc dbctx.Context) (int, error)
}

type badWordRepo struct {
	db    *gorm.DB
	log   *logger.Logger
	cache *cache.Cache
}

func NewBadWordRepo(db *gorm.DB, baseLog *logger.Logger, ttl time.Duration) BadWordRepo {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &badWordRepo{
		db:  db,
		log: baseLog.With("repo", "BadWordRepo"),
		// no janitor: entries are replaced on read after expiry
		cache: cache.New(ttl, 0),
	}
}

// CategoryWords returns word -> category for the locale, falling back to its base language
// ("es-AR" -> "es").
func (r *badWordRepo) CategoryWords(ctx context.Context, locale string) (map[string]string, error) {
	key := normalizeLocale(locale)
	if v, ok := r.cache.Get(key); ok {
		return v.(map[string]string), nil
	}
	locales := []string{key}
	if base, _, found := strings.Cut(key, "-"); found && base != "" {
		locales = append(locales, base)
	}
	var rows []*moderation.BadWord
	if err := r.db.WithContext(ctx).
		Where("active = ? AND locale IN ?", true, locales).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load category words: %w", err)
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		w := strings.ToLower(strings.TrimSpace(row.Word))
		if w == "" {
			continue
		}
		if _, exists := out[w]; exists && row.Locale != key {
			continue
		}
		out[w] = row.Category
	}
	r.cache.SetDefault(key, out)
	return out, nil
}

func (r *badWordRepo) List(dbc dbctx.Context, locale string) ([]*moderation.BadWord, error) {
	transaction := dbc.DB(r.db)
	q := transaction.Order("locale ASC, category ASC, word ASC")
	if locale != "" {
		q = q.Where("locale = ?", normalizeLocale(locale))
	}
	var out []*moderation.BadWord
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *badWordRepo) Upsert(dbc dbctx.Context, words []*moderation.BadWord) error {
	if len(words) == 0 {
		return nil
	}
	for _, w := range words {
		w.Word = strings.ToLower(strings.TrimSpace(w.Word))
		w.Locale = normalizeLocale(w.Locale)
		if w.Word == "" || (w.Category != moderation.BadWordSexual && w.Category != moderation.BadWordViolent) {
			return fmt.Errorf("invalid bad word %q/%q", w.Word, w.Category)
		}
	}
	err := dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "word"}, {Name: "category"}, {Name: "locale"}},
			DoUpdates: clause.AssignmentColumns([]string{"active"}),
		}).
		Create(&words).Error
	if err != nil {
		return err
	}
	r.cache.Flush()
	return nil
}

func (r *badWordRepo) SetActive(dbc dbctx.Context, word, category, locale string, active bool) error {
	err := dbc.DB(r.db).
		Model(&moderation.BadWord{}).
		Where("word = ? AND category = ? AND locale = ?", strings.ToLower(strings.TrimSpace(word)), category, normalizeLocale(locale)).
		Update("active", active).Error
	if err != nil {
		return err
	}
	r.cache.Flush()
	return nil
}

// Seed inserts the embedded word list. Existing rows keep their active flag.
func (r *badWordRepo) Seed(dbc dbctx.Context) (int, error) {
	words, err := parseSeed(seedYAML)
	if err != nil {
		return 0, err
	}
	res := dbc.DB(r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&words)
	if res.Error != nil {
		return 0, res.Error
	}
	r.cache.Flush()
	r.log.Info("Seeded bad words", "inserted", res.RowsAffected, "total", len(words))
	return int(res.RowsAffected), nil
}

// parseSeed reads locale -> category -> words.
func parseSeed(raw []byte) ([]*moderation.BadWord, error) {
	var doc map[string]map[string][]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse bad word seed: %w", err)
	}
	out := []*moderation.BadWord{}
	for locale, cats := range doc {
		for category, words := range cats {
			for _, w := range words {
				w = strings.ToLower(strings.TrimSpace(w))
				if w == "" {
					continue
				}
				out = append(out, &moderation.BadWord{
					Word:     w,
					Category: category,
					Locale:   normalizeLocale(locale),
					Active:   true,
					Origin:   "seed",
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Locale != out[j].Locale {
			return out[i].Locale < out[j].Locale
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Word < out[j].Word
	})
	return out, nil
}

func normalizeLocale(locale string) string {
	l := strings.TrimSpace(strings.ReplaceAll(locale, "_", "-"))
	if l == "" {
		return "es"
	}
	base, region, found := strings.Cut(l, "-")
	if !found {
		return strings.ToLower(base)
	}
	return strings.ToLower(base) + "-" + strings.ToUpper(region)
}
