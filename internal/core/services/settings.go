package services

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/reverie/internal/core/domain"
	"github.com/custodia-labs/reverie/internal/core/ports/driven"
	"github.com/custodia-labs/reverie/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

const personaPrefix = "personas."

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindBool
	kindDuration
)

// setting maps one dotted config key onto AppSettings. check rejects values
// that parse but are out of range; it runs on Set only, so a bad value
// edited into the file falls back to the default instead.
type setting struct {
	kind  valueKind
	apply func(s *domain.AppSettings, v any)
	check func(v any) error
}

// personaField maps personas.<id>.<field> onto a PersonaProfile.
type personaField struct {
	kind  valueKind
	apply func(p *domain.PersonaProfile, v any)
}

//nolint:gosec // G101: config key names, not credentials.
var settingKeys = map[string]setting{
	"embedding.provider": {kindString, func(s *domain.AppSettings, v any) {
		if p := domain.EmbeddingProvider(v.(string)); p.IsValid() {
			s.Embedding.Provider = p
		}
	}, func(v any) error {
		if !domain.EmbeddingProvider(v.(string)).IsValid() {
			return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrUnsupportedType, v)
		}
		return nil
	}},
	"embedding.model":    {kindString, func(s *domain.AppSettings, v any) { s.Embedding.Model = v.(string) }, nil},
	"embedding.base_url": {kindString, func(s *domain.AppSettings, v any) { s.Embedding.BaseURL = v.(string) }, nil},
	"embedding.api_key":  {kindString, func(s *domain.AppSettings, v any) { s.Embedding.APIKey = v.(string) }, nil},
	"embedding.dimensions": {kindInt, func(s *domain.AppSettings, v any) {
		s.Embedding.Dimensions = v.(int)
	}, nonNegative},
	"embedding.timeout": {kindDuration, func(s *domain.AppSettings, v any) {
		s.Embedding.Timeout = v.(time.Duration)
	}, positiveDuration},
	"embedding.requests_per_second": {kindFloat, func(s *domain.AppSettings, v any) {
		s.Embedding.RequestsPerSecond = v.(float64)
	}, nonNegative},

	"store.backend": {kindString, func(s *domain.AppSettings, v any) {
		if b := domain.StoreBackend(v.(string)); b.IsValid() {
			s.Store.Backend = b
		}
	}, func(v any) error {
		if !domain.StoreBackend(v.(string)).IsValid() {
			return fmt.Errorf("%w: unknown store backend %q", domain.ErrUnsupportedType, v)
		}
		return nil
	}},
	"store.data_dir": {kindString, func(s *domain.AppSettings, v any) { s.Store.DataDir = v.(string) }, nil},
	"store.dsn":      {kindString, func(s *domain.AppSettings, v any) { s.Store.DSN = v.(string) }, nil},

	"cache.backend": {kindString, func(s *domain.AppSettings, v any) {
		if b := domain.CacheBackend(v.(string)); b.IsValid() {
			s.Cache.Backend = b
		}
	}, func(v any) error {
		if !domain.CacheBackend(v.(string)).IsValid() {
			return fmt.Errorf("%w: unknown cache backend %q", domain.ErrUnsupportedType, v)
		}
		return nil
	}},
	"cache.redis_addr": {kindString, func(s *domain.AppSettings, v any) { s.Cache.RedisAddr = v.(string) }, nil},
	"cache.ttl": {kindDuration, func(s *domain.AppSettings, v any) {
		s.Cache.TTL = v.(time.Duration)
	}, positiveDuration},

	"ingest.workers":    {kindInt, func(s *domain.AppSettings, v any) { s.Ingest.Workers = v.(int) }, positive},
	"ingest.batch_size": {kindInt, func(s *domain.AppSettings, v any) { s.Ingest.BatchSize = v.(int) }, positive},

	"retrieval.semantic_weight": {kindFloat, func(s *domain.AppSettings, v any) {
		s.Retrieval.SemanticWeight = v.(float64)
	}, unitInterval},
	"retrieval.lexical_weight": {kindFloat, func(s *domain.AppSettings, v any) {
		s.Retrieval.LexicalWeight = v.(float64)
	}, unitInterval},
	"retrieval.hybrid": {kindBool, func(s *domain.AppSettings, v any) { s.Retrieval.Hybrid = v.(bool) }, nil},
	"retrieval.candidate_multiplier": {kindInt, func(s *domain.AppSettings, v any) {
		s.Retrieval.CandidateMultiplier = v.(int)
	}, positive},
	"retrieval.min_results": {kindInt, func(s *domain.AppSettings, v any) {
		s.Retrieval.MinResults = v.(int)
	}, nonNegative},
	"retrieval.tracker_size": {kindInt, func(s *domain.AppSettings, v any) {
		s.Retrieval.TrackerSize = v.(int)
	}, positive},
	"retrieval.lexical_fallback": {kindBool, func(s *domain.AppSettings, v any) {
		s.Retrieval.LexicalFallback = v.(bool)
	}, nil},

	"vocabulary.path": {kindString, func(s *domain.AppSettings, v any) { s.VocabularyPath = v.(string) }, nil},
}

var personaFields = map[string]personaField{
	"scope": {kindString, func(p *domain.PersonaProfile, v any) { p.Scope = v.(string) }},
	"similarity_threshold": {kindFloat, func(p *domain.PersonaProfile, v any) {
		p.SimilarityThreshold = v.(float64)
	}},
	"max_results": {kindInt, func(p *domain.PersonaProfile, v any) { p.MaxResults = v.(int) }},
	"chunk_size":  {kindInt, func(p *domain.PersonaProfile, v any) { p.ChunkSize = v.(int) }},
	"overlap":     {kindInt, func(p *domain.PersonaProfile, v any) { p.Overlap = v.(int) }},
	"min_chunk":   {kindInt, func(p *domain.PersonaProfile, v any) { p.MinChunk = v.(int) }},
	"max_chunk":   {kindInt, func(p *domain.PersonaProfile, v any) { p.MaxChunk = v.(int) }},
	"theoretical_discount": {kindFloat, func(p *domain.PersonaProfile, v any) {
		p.TheoreticalDiscount = v.(float64)
	}},
	"boost_bonus": {kindFloat, func(p *domain.PersonaProfile, v any) { p.BoostBonus = v.(float64) }},
}

// SettingsService maps the flat config store onto typed application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get returns the defaults overlaid with every stored key.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()

	for key, st := range settingKeys {
		if v, ok := s.read(key, st.kind); ok {
			st.apply(&settings, v)
		}
	}

	for _, key := range s.configStore.Keys(personaPrefix) {
		id, field, ok := splitPersonaKey(key)
		if !ok {
			continue
		}
		pf, known := personaFields[field]
		if !known {
			continue
		}
		v, ok := s.read(key, pf.kind)
		if !ok {
			continue
		}
		p := settings.Personas[id]
		if p.ID == "" {
			p = newPersona(id)
		}
		pf.apply(&p, v)
		settings.Personas[id] = p
	}

	return &settings, nil
}

// Set parses value for key, checks the resulting settings and persists.
func (s *SettingsService) Set(key, value string) error {
	kind, check, err := lookupKey(key)
	if err != nil {
		return err
	}
	v, err := parseValue(kind, value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	if check != nil {
		if err := check(v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	// Persona profiles are validated as a whole before persisting.
	if id, field, ok := splitPersonaKey(key); ok {
		current, err := s.Get()
		if err != nil {
			return err
		}
		p := current.Personas[id]
		if p.ID == "" {
			p = newPersona(id)
		}
		personaFields[field].apply(&p, v)
		if err := p.Validate(); err != nil {
			return err
		}
	}

	stored := v
	if d, ok := v.(time.Duration); ok {
		stored = d.String()
	}
	if err := s.configStore.Set(key, stored); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Persona returns one profile or ErrUnknownPersona.
func (s *SettingsService) Persona(id string) (domain.PersonaProfile, error) {
	settings, err := s.Get()
	if err != nil {
		return domain.PersonaProfile{}, err
	}
	p, ok := settings.Persona(id)
	if !ok {
		return domain.PersonaProfile{}, fmt.Errorf("%w: %q (known: %s)",
			domain.ErrUnknownPersona, id, strings.Join(domain.PersonaIDs(settings.Personas), ", "))
	}
	return p, nil
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return ValidateSettings(settings)
}

// ValidateSettings checks cross-field constraints that single keys cannot.
func ValidateSettings(settings *domain.AppSettings) error {
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %s is not configured (set embedding.api_key)",
			domain.ErrInvalidInput, settings.Embedding.Provider)
	}
	if settings.Store.Backend == domain.StoreBackendPostgres && settings.Store.DSN == "" {
		return fmt.Errorf("%w: store.dsn is required for the postgres backend", domain.ErrInvalidInput)
	}
	if settings.Cache.Backend == domain.CacheBackendRedis && settings.Cache.RedisAddr == "" {
		return fmt.Errorf("%w: cache.redis_addr is required for the redis cache", domain.ErrInvalidInput)
	}
	if w := settings.Retrieval.SemanticWeight + settings.Retrieval.LexicalWeight; w <= 0 {
		return fmt.Errorf("%w: retrieval weights must not both be zero", domain.ErrInvalidInput)
	}
	for _, id := range domain.PersonaIDs(settings.Personas) {
		if err := settings.Personas[id].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Keys lists the settable dotted keys.
func (s *SettingsService) Keys() []string {
	return Keys()
}

// Keys lists every settable key; persona keys use "<id>" as a placeholder.
func Keys() []string {
	keys := slices.Collect(maps.Keys(settingKeys))
	for field := range personaFields {
		keys = append(keys, personaPrefix+"<id>."+field)
	}
	slices.Sort(keys)
	return keys
}

func (s *SettingsService) read(key string, kind valueKind) (any, bool) {
	if _, ok := s.configStore.Get(key); !ok {
		return nil, false
	}
	switch kind {
	case kindInt:
		return s.configStore.GetInt(key), true
	case kindFloat:
		return s.configStore.GetFloat(key), true
	case kindBool:
		return s.configStore.GetBool(key), true
	case kindDuration:
		d, err := time.ParseDuration(s.configStore.GetString(key))
		if err != nil || d <= 0 {
			return nil, false
		}
		return d, true
	default:
		return s.configStore.GetString(key), true
	}
}

func lookupKey(key string) (valueKind, func(any) error, error) {
	if st, ok := settingKeys[key]; ok {
		return st.kind, st.check, nil
	}
	if _, field, ok := splitPersonaKey(key); ok {
		if pf, known := personaFields[field]; known {
			return pf.kind, nil, nil
		}
	}
	return 0, nil, fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
}

func parseValue(kind valueKind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case kindInt:
		return strconv.Atoi(raw)
	case kindFloat:
		return strconv.ParseFloat(raw, 64)
	case kindBool:
		return strconv.ParseBool(raw)
	case kindDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

// splitPersonaKey splits "personas.<id>.<field>".
func splitPersonaKey(key string) (id, field string, ok bool) {
	rest, found := strings.CutPrefix(key, personaPrefix)
	if !found {
		return "", "", false
	}
	id, field, found = strings.Cut(rest, ".")
	if !found || id == "" || field == "" {
		return "", "", false
	}
	return id, field, true
}

// newPersona is the starting profile for a persona only defined in config.
func newPersona(id string) domain.PersonaProfile {
	p := domain.DefaultPersonas()["eclectic"]
	p.ID = id
	p.Scope = id
	return p
}

func positive(v any) error {
	if v.(int) <= 0 {
		return fmt.Errorf("%w: must be positive", domain.ErrInvalidInput)
	}
	return nil
}

func nonNegative(v any) error {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return fmt.Errorf("%w: must not be negative", domain.ErrInvalidInput)
		}
	case float64:
		if n < 0 {
			return fmt.Errorf("%w: must not be negative", domain.ErrInvalidInput)
		}
	}
	return nil
}

func unitInterval(v any) error {
	if f := v.(float64); f < 0 || f > 1 {
		return fmt.Errorf("%w: must be within [0,1]", domain.ErrInvalidInput)
	}
	return nil
}

func positiveDuration(v any) error {
	if v.(time.Duration) <= 0 {
		return fmt.Errorf("%w: must be a positive duration", domain.ErrInvalidInput)
	}
	return nil
}
