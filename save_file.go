package main

import (
	"bytes"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"hamurabi/game"
)

const saveHeader = "save/v1"

// saveDocument is the on-disk form: one "key: value" line per field.
type saveDocument struct {
	Header              string `yaml:"hamurabi"`
	GameID              string `yaml:"game_id,omitempty"`
	Population          uint64 `yaml:"population"`
	Area                uint64 `yaml:"area"`
	Grain               uint64 `yaml:"grain"`
	AcrePrice           uint64 `yaml:"acre_price"`
	CurrentRound        uint64 `yaml:"current_round"`
	DeadFromHunger      uint64 `yaml:"dead_from_hunger"`
	DeadFromHungerTotal uint64 `yaml:"dead_from_hunger_total"`
	Arrived             uint64 `yaml:"arrived"`
	GrainFromAcre       uint64 `yaml:"grain_from_acre"`
	GrainEatenByRats    uint64 `yaml:"grain_eaten_by_rats"`
	IsPlague            bool   `yaml:"is_plague"`
	IsGameOver          bool   `yaml:"is_game_over"`
	Generator           string `yaml:"generator,omitempty"`
}

const saveSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "required": [
    "hamurabi", "population", "area", "grain", "acre_price", "current_round",
    "dead_from_hunger", "dead_from_hunger_total", "arrived", "grain_from_acre",
    "grain_eaten_by_rats", "is_plague", "is_game_over"
  ],
  "properties": {
    "hamurabi": {"const": "save/v1"},
    "population": {"$ref": "#/definitions/count"},
    "area": {"$ref": "#/definitions/count"},
    "grain": {"$ref": "#/definitions/count"},
    "acre_price": {"type": "integer", "minimum": 17, "maximum": 26},
    "current_round": {"type": "integer", "minimum": 1, "maximum": 11},
    "dead_from_hunger": {"$ref": "#/definitions/count"},
    "dead_from_hunger_total": {"$ref": "#/definitions/count"},
    "arrived": {"$ref": "#/definitions/count"},
    "grain_from_acre": {"type": "integer", "minimum": 1, "maximum": 6},
    "grain_eaten_by_rats": {"$ref": "#/definitions/count"},
    "is_plague": {"type": "boolean"},
    "is_game_over": {"type": "boolean"},
    "generator": {"type": "string"},
    "game_id": {"type": "string"}
  },
  "definitions": {
    "count": {"type": "integer", "minimum": 0, "maximum": 4294967295}
  }
}`

var saveSchema = jsonschema.MustCompileString("save.schema.json", saveSchemaJSON)

// savedGame is a city plus the ID that links it to repository rows.
type savedGame struct {
	ID   string
	City *game.City
}

func newSaveDocument(g savedGame) (saveDocument, error) {
	s := g.City.State()
	doc := saveDocument{
		Header:              saveHeader,
		GameID:              g.ID,
		Population:          s.Population,
		Area:                s.Area,
		Grain:               s.Grain,
		AcrePrice:           s.AcrePrice,
		CurrentRound:        s.CurrentRound,
		DeadFromHunger:      s.DeadFromHunger,
		DeadFromHungerTotal: s.DeadFromHungerTotal,
		Arrived:             s.Arrived,
		GrainFromAcre:       s.GrainFromAcre,
		GrainEatenByRats:    s.GrainEatenByRats,
		IsPlague:            s.IsPlague,
		IsGameOver:          s.IsGameOver,
	}
	if m, ok := g.City.Events().(encoding.BinaryMarshaler); ok {
		raw, err := m.MarshalBinary()
		if err != nil {
			return doc, fmt.Errorf("marshal generator: %w", err)
		}
		doc.Generator = base64.StdEncoding.EncodeToString(raw)
	}
	return doc, nil
}

func (d saveDocument) state() game.State {
	return game.State{
		Population:          d.Population,
		Area:                d.Area,
		Grain:               d.Grain,
		AcrePrice:           d.AcrePrice,
		CurrentRound:        d.CurrentRound,
		DeadFromHunger:      d.DeadFromHunger,
		DeadFromHungerTotal: d.DeadFromHungerTotal,
		Arrived:             d.Arrived,
		GrainFromAcre:       d.GrainFromAcre,
		GrainEatenByRats:    d.GrainEatenByRats,
		IsPlague:            d.IsPlague,
		IsGameOver:          d.IsGameOver,
	}
}

func marshalSave(g savedGame) ([]byte, error) {
	doc, err := newSaveDocument(g)
	if err != nil {
		return nil, err
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return out, nil
}

// unmarshalSave validates raw against the save schema and rebuilds the
// city. A save without generator state continues from a fresh seed.
func unmarshalSave(raw []byte, seed uint64) (savedGame, error) {
	var loose any
	if err := yaml.Unmarshal(raw, &loose); err != nil {
		return savedGame{}, fmt.Errorf("decode save: %w", err)
	}
	asJSON, err := json.Marshal(loose)
	if err != nil {
		return savedGame{}, fmt.Errorf("decode save: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(asJSON))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return savedGame{}, fmt.Errorf("decode save: %w", err)
	}
	if err := saveSchema.Validate(generic); err != nil {
		return savedGame{}, fmt.Errorf("validate save: %w", err)
	}

	var doc saveDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return savedGame{}, fmt.Errorf("decode save: %w", err)
	}

	events := game.NewRandomEvents(seed)
	if doc.Generator != "" {
		blob, err := base64.StdEncoding.DecodeString(doc.Generator)
		if err != nil {
			return savedGame{}, fmt.Errorf("decode generator: %w", err)
		}
		if err := events.UnmarshalBinary(blob); err != nil {
			return savedGame{}, fmt.Errorf("restore generator: %w", err)
		}
	}

	city, err := game.Restore(doc.state(), events)
	if err != nil {
		return savedGame{}, fmt.Errorf("restore city: %w", err)
	}
	return savedGame{ID: doc.GameID, City: city}, nil
}

func compressedSave(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// writeSaveFile replaces path atomically through a temporary sibling file.
func writeSaveFile(path string, g savedGame) error {
	out, err := marshalSave(g)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create save directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open save: %w", err)
	}
	if err := writeSaveBytes(f, out, compressedSave(path)); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close save: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace save: %w", err)
	}
	return nil
}

func writeSaveBytes(w io.Writer, out []byte, compress bool) error {
	if !compress {
		if _, err := w.Write(out); err != nil {
			return fmt.Errorf("write save: %w", err)
		}
		return nil
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("open zstd writer: %w", err)
	}
	if _, err := enc.Write(out); err != nil {
		_ = enc.Close()
		return fmt.Errorf("write save: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("flush save: %w", err)
	}
	return nil
}

func readSaveFile(path string, seed uint64) (savedGame, error) {
	f, err := os.Open(path)
	if err != nil {
		return savedGame{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressedSave(path) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return savedGame{}, fmt.Errorf("open zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return savedGame{}, fmt.Errorf("read save: %w", err)
	}
	return unmarshalSave(raw, seed)
}

func saveFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func removeSaveFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove save: %w", err)
	}
	return nil
}
