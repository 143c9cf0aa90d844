package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"hamurabi/game"
)

func newTestGame(t *testing.T, seed uint64) savedGame {
	t.Helper()
	return savedGame{ID: uuid.NewString(), City: game.NewCity(game.NewRandomEvents(seed))}
}

// playOpeningRound feeds everyone and plants what the city can afford.
func playOpeningRound(t *testing.T, c *game.City) {
	t.Helper()
	feed, err := game.NewGrainToFeed(min(c.Population()*20, c.Grain()), c)
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	plant, err := game.NewAreaToPlant(min(c.Area(), c.Population()*10, (c.Grain()-feed.Bushels())*2), c)
	if err != nil {
		t.Fatalf("plant: %v", err)
	}
	buy, _ := game.NewAreaToBuy(0, c)
	sell, _ := game.NewAreaToSell(0, c)
	in, err := game.NewRoundInput(buy, sell, feed, plant, c)
	if err != nil {
		t.Fatalf("round input: %v", err)
	}
	c.PlayRound(in)
}

func restoreTestCity(t *testing.T, mutate func(*game.State)) *game.City {
	t.Helper()
	s := game.State{
		Population:       100,
		Area:             1000,
		Grain:            2800,
		AcrePrice:        20,
		CurrentRound:     1,
		Arrived:          5,
		GrainFromAcre:    3,
		GrainEatenByRats: 200,
	}
	if mutate != nil {
		mutate(&s)
	}
	c, err := game.Restore(s, game.NewRandomEvents(1))
	if err != nil {
		t.Fatalf("Restore error: %v", err)
	}
	return c
}

func TestSaveFileRoundTrip(t *testing.T) {
	for _, name := range []string{"city.sav", "nested/dir/city.sav.zst"} {
		path := filepath.Join(t.TempDir(), name)
		g := newTestGame(t, 5)
		playOpeningRound(t, g.City)

		if err := writeSaveFile(path, g); err != nil {
			t.Fatalf("%s: writeSaveFile error: %v", name, err)
		}
		if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s: temporary file left behind: %v", name, err)
		}

		loaded, err := readSaveFile(path, 999)
		if err != nil {
			t.Fatalf("%s: readSaveFile error: %v", name, err)
		}
		if loaded.ID != g.ID {
			t.Fatalf("%s: id mismatch: got %q want %q", name, loaded.ID, g.ID)
		}
		if loaded.City.State() != g.City.State() {
			t.Fatalf("%s: state mismatch: got %+v want %+v", name, loaded.City.State(), g.City.State())
		}

		// Both cities must keep playing the same random sequence.
		playOpeningRound(t, g.City)
		playOpeningRound(t, loaded.City)
		if loaded.City.State() != g.City.State() {
			t.Fatalf("%s: diverged after restore: got %+v want %+v", name, loaded.City.State(), g.City.State())
		}
	}
}

func TestCompressedSaveIsZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "city.zst")
	if err := writeSaveFile(path, newTestGame(t, 1)); err != nil {
		t.Fatalf("writeSaveFile error: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.HasPrefix(raw, []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Fatalf("expected zstd frame magic, got % x", raw[:min(4, len(raw))])
	}
}

func TestSaveDocumentIsFlatText(t *testing.T) {
	c := restoreTestCity(t, nil)
	out, err := marshalSave(savedGame{ID: "abc", City: c})
	if err != nil {
		t.Fatalf("marshalSave error: %v", err)
	}
	text := string(out)
	for _, want := range []string{
		"hamurabi: save/v1\n",
		"game_id: abc\n",
		"population: 100\n",
		"area: 1000\n",
		"grain: 2800\n",
		"acre_price: 20\n",
		"current_round: 1\n",
		"grain_eaten_by_rats: 200\n",
		"is_plague: false\n",
		"is_game_over: false\n",
		"generator: ",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("save text missing %q:\n%s", want, text)
		}
	}
}

func TestUnmarshalSaveRejectsInvalidDocuments(t *testing.T) {
	valid, err := marshalSave(savedGame{City: restoreTestCity(t, nil)})
	if err != nil {
		t.Fatalf("marshalSave error: %v", err)
	}

	cases := map[string]string{
		"wrong header":    strings.Replace(string(valid), "save/v1", "save/v9", 1),
		"price too high":  strings.Replace(string(valid), "acre_price: 20", "acre_price: 30", 1),
		"round too late":  strings.Replace(string(valid), "current_round: 1", "current_round: 12", 1),
		"negative grain":  strings.Replace(string(valid), "grain: 2800", "grain: -5", 1),
		"missing area":    strings.Replace(string(valid), "area: 1000\n", "", 1),
		"unknown key":     string(valid) + "treasure: 7\n",
		"not a mapping":   "- 1\n- 2\n",
		"broken yaml":     "population: [\n",
		"huge population": strings.Replace(string(valid), "population: 100", "population: 4294967296", 1),
	}
	for name, doc := range cases {
		if _, err := unmarshalSave([]byte(doc), 1); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestUnmarshalSaveChecksCityInvariants(t *testing.T) {
	c := restoreTestCity(t, func(s *game.State) {
		s.DeadFromHunger = 3
		s.DeadFromHungerTotal = 3
	})
	out, err := marshalSave(savedGame{City: c})
	if err != nil {
		t.Fatalf("marshalSave error: %v", err)
	}
	doc := strings.Replace(string(out), "dead_from_hunger_total: 3", "dead_from_hunger_total: 2", 1)
	_, err = unmarshalSave([]byte(doc), 1)
	if !errors.Is(err, game.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestUnmarshalSaveWithoutGenerator(t *testing.T) {
	c := restoreTestCity(t, nil)
	out, err := marshalSave(savedGame{City: c})
	if err != nil {
		t.Fatalf("marshalSave error: %v", err)
	}
	var kept []string
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.HasPrefix(line, "generator:") {
			kept = append(kept, line)
		}
	}

	loaded, err := unmarshalSave([]byte(strings.Join(kept, "\n")), 77)
	if err != nil {
		t.Fatalf("unmarshalSave error: %v", err)
	}
	if loaded.City.State() != c.State() {
		t.Fatalf("state mismatch: got %+v want %+v", loaded.City.State(), c.State())
	}
	fresh := game.NewRandomEvents(77)
	if got, want := loaded.City.Events().HarvestYield(), fresh.HarvestYield(); got != want {
		t.Fatalf("expected generator seeded with 77: got %d want %d", got, want)
	}
}

func TestRemoveSaveFileIgnoresMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.sav")
	if err := removeSaveFile(path); err != nil {
		t.Fatalf("removeSaveFile on missing file: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !saveFileExists(path) {
		t.Fatalf("expected save to exist")
	}
	if err := removeSaveFile(path); err != nil {
		t.Fatalf("removeSaveFile error: %v", err)
	}
	if saveFileExists(path) {
		t.Fatalf("expected save to be removed")
	}
}
