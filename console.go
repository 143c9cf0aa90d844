package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"hamurabi/game"
)

var errExit = errors.New("exit requested")

const (
	greeting = "                                HAMURABI\n" +
		"               CREATIVE COMPUTING  MORRISTOWN, NEW JERSEY\n\n" +
		"TRY YOUR HAND AT GOVERNING ANCIENT SUMERIA\n" +
		"FOR A TEN-YEAR TERM OF OFFICE.\n\n"
	cannotDo  = "HAMURABI: I CANNOT DO WHAT YOU WISH.  NOW THEN,\n"
	farewell  = "\nSO LONG FOR NOW.\n"
	exitHint  = "(TYPE EXIT AT ANY PROMPT TO SAVE AND LEAVE.)\n\n"
	promptBuy = "HOW MANY ACRES DO YOU WISH TO BUY? "
	promptSel = "HOW MANY ACRES DO YOU WISH TO SELL? "
	promptFed = "HOW MANY BUSHELS DO YOU WISH TO FEED YOUR PEOPLE? "
	promptPlt = "HOW MANY ACRES DO YOU WISH TO PLANT WITH SEED? "
)

var verdicts = map[game.Rank]string{
	game.RankD: "THE PEOPLE (REMAINING) FIND YOU AN UNPLEASANT RULER, AND,\n" +
		"FRANKLY, HATE YOUR GUTS!\n",
	game.RankC: "YOUR HEAVY-HANDED PERFORMANCE SMACKS OF NERO AND IVAN IV.\n",
	game.RankB: "YOUR PERFORMANCE COULD HAVE BEEN SOMEWHAT BETTER, BUT\n" +
		"REALLY WASN'T TOO BAD AT ALL. PEOPLE\n" +
		"DEARLY LIKE TO SEE YOU ASSASSINATED BUT WE ALL HAVE OUR\n" +
		"TRIVIAL PROBLEMS.\n",
	game.RankA: "A FANTASTIC PERFORMANCE!!! CHARLEMAGNE, DISRAELI, AND\n" +
		"JEFFERSON COMBINED COULD NOT HAVE DONE BETTER!\n",
}

// session drives one interactive term over a line-oriented reader.
type session struct {
	cfg  Config
	repo Repository
	in   *bufio.Reader
	out  io.Writer
	seed uint64

	// ownsSave is set when the save file is absent or holds this game.
	ownsSave bool
}

func newSession(cfg Config, repo Repository, in io.Reader, out io.Writer) *session {
	return &session{
		cfg:  cfg,
		repo: repo,
		in:   bufio.NewReader(in),
		out:  out,
		seed: cfg.seed(),
	}
}

func (s *session) run(ctx context.Context) error {
	fmt.Fprint(s.out, greeting)

	g, err := s.openGame(ctx)
	if errors.Is(err, errExit) || errors.Is(err, io.EOF) {
		fmt.Fprint(s.out, farewell)
		return nil
	}
	if err != nil {
		return err
	}

	if g.City.Terminated() {
		// Ended in an earlier session, which already recorded it.
		s.summarize(g.City.Outcome())
		fmt.Fprint(s.out, farewell)
		s.dropSave()
		return nil
	}

	fmt.Fprint(s.out, exitHint)
	s.report(g.City)
	for {
		in, err := s.readRound(g.City)
		if errors.Is(err, errExit) || errors.Is(err, io.EOF) {
			s.persist(ctx, g)
			fmt.Fprint(s.out, farewell)
			return nil
		}
		if err != nil {
			return err
		}

		switch out := g.City.PlayRound(in).(type) {
		case game.Continue:
			s.report(g.City)
			s.persist(ctx, g)
		default:
			s.finish(ctx, g, out)
			return nil
		}
	}
}

// openGame resumes a game from the repository or the save file, or starts
// a new one.
func (s *session) openGame(ctx context.Context) (savedGame, error) {
	if s.cfg.Resume != "" {
		g, err := s.repo.LoadGame(ctx, s.cfg.Resume)
		if err != nil {
			return savedGame{}, fmt.Errorf("resume %s: %w", s.cfg.Resume, err)
		}
		s.ownsSave = s.saveBelongsTo(g.ID)
		if !s.ownsSave {
			log.Printf("save %s holds another game; leaving it untouched", s.cfg.SaveFile)
		}
		return g, nil
	}

	if !s.cfg.ForceNew && saveFileExists(s.cfg.SaveFile) {
		resume, err := s.askContinue()
		if err != nil {
			return savedGame{}, err
		}
		if resume {
			g, err := readSaveFile(s.cfg.SaveFile, s.seed)
			if err != nil {
				return savedGame{}, fmt.Errorf("load %s: %w", s.cfg.SaveFile, err)
			}
			if g.ID == "" {
				g.ID = uuid.NewString()
			}
			log.Printf("resumed game %s from %s", g.ID, s.cfg.SaveFile)
			s.ownsSave = true
			return g, nil
		}
	}

	g := savedGame{
		ID:   uuid.NewString(),
		City: game.NewCity(game.NewRandomEvents(s.seed)),
	}
	log.Printf("new game %s seed=%d", g.ID, s.seed)
	s.ownsSave = true
	return g, nil
}

func (s *session) saveBelongsTo(id string) bool {
	if !saveFileExists(s.cfg.SaveFile) {
		return true
	}
	other, err := readSaveFile(s.cfg.SaveFile, s.seed)
	return err == nil && other.ID == id
}

func (s *session) askContinue() (bool, error) {
	for {
		fmt.Fprint(s.out, "A SAVED GAME WAS FOUND. CONTINUE OR NEW? ")
		line, err := s.readLine()
		if err != nil {
			return false, err
		}
		switch line {
		case "continue", "c":
			return true, nil
		case "new", "n":
			return false, nil
		case "exit":
			return false, errExit
		}
	}
}

func (s *session) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}

// readUnsigned prompts until the player types a non-negative integer.
func (s *session) readUnsigned(prompt string) (uint64, error) {
	for {
		fmt.Fprint(s.out, prompt)
		line, err := s.readLine()
		if err != nil {
			return 0, err
		}
		if line == "exit" {
			return 0, errExit
		}
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil || n < 0 {
			fmt.Fprint(s.out, cannotDo)
			continue
		}
		return uint64(n), nil
	}
}

// readQuantity repeats a prompt until check accepts the typed amount.
func (s *session) readQuantity(prompt string, check func(uint64) error) error {
	for {
		n, err := s.readUnsigned(prompt)
		if err != nil {
			return err
		}
		if err := check(n); err != nil {
			s.thinkAgain(err)
			continue
		}
		return nil
	}
}

// readRound collects the four decisions, starting over when they do not
// fit together.
func (s *session) readRound(c *game.City) (game.RoundInput, error) {
	for {
		var (
			buy   game.AreaToBuy
			sell  game.AreaToSell
			feed  game.GrainToFeed
			plant game.AreaToPlant
			err   error
		)
		if err = s.readQuantity(promptBuy, func(n uint64) (err error) {
			buy, err = game.NewAreaToBuy(n, c)
			return err
		}); err != nil {
			return game.RoundInput{}, err
		}
		if err = s.readQuantity(promptSel, func(n uint64) (err error) {
			sell, err = game.NewAreaToSell(n, c)
			return err
		}); err != nil {
			return game.RoundInput{}, err
		}
		if err = s.readQuantity(promptFed, func(n uint64) (err error) {
			feed, err = game.NewGrainToFeed(n, c)
			return err
		}); err != nil {
			return game.RoundInput{}, err
		}
		if err = s.readQuantity(promptPlt, func(n uint64) (err error) {
			plant, err = game.NewAreaToPlant(n, c)
			return err
		}); err != nil {
			return game.RoundInput{}, err
		}
		fmt.Fprintln(s.out)

		in, err := game.NewRoundInput(buy, sell, feed, plant, c)
		if err != nil {
			s.thinkAgain(err)
			continue
		}
		return in, nil
	}
}

func (s *session) thinkAgain(err error) {
	var area *game.NotEnoughAreaError
	var grain *game.NotEnoughGrainError
	var people *game.NotEnoughPeopleError
	switch {
	case errors.As(err, &area):
		fmt.Fprintf(s.out, "HAMURABI: THINK AGAIN. YOU OWN ONLY %d ACRES. NOW THEN,\n", area.Area)
	case errors.As(err, &grain):
		fmt.Fprintf(s.out, "HAMURABI: THINK AGAIN. YOU HAVE ONLY\n%d BUSHELS OF GRAIN. NOW THEN,\n", grain.Grain)
	case errors.As(err, &people):
		fmt.Fprintf(s.out, "HAMURABI: THINK AGAIN. YOU HAVE ONLY %d PEOPLE TO TEND THE FIELDS! NOW THEN,\n", people.Population)
	default:
		fmt.Fprint(s.out, cannotDo)
	}
}

func (s *session) report(c *game.City) {
	fmt.Fprintf(s.out, "HAMURABI:  I BEG TO REPORT TO YOU,\nIN YEAR %d,", c.CurrentRound())
	if c.DeadFromHunger() > 0 {
		fmt.Fprintf(s.out, " %d PEOPLE STARVED,", c.DeadFromHunger())
	}
	if c.Arrived() > 0 {
		fmt.Fprintf(s.out, " %d CAME TO THE CITY,", c.Arrived())
	}
	fmt.Fprintln(s.out)
	if c.IsPlague() {
		fmt.Fprintln(s.out, "A HORRIBLE PLAGUE STRUCK!  HALF THE PEOPLE DIED.")
	}
	fmt.Fprintf(s.out, "POPULATION IS NOW %d\n", c.Population())
	fmt.Fprintf(s.out, "THE CITY NOW OWNS %d ACRES\n", c.Area())
	fmt.Fprintf(s.out, "YOU HARVESTED %d BUSHELS PER ACRE.\n", c.GrainFromAcre())
	if c.GrainEatenByRats() > 0 {
		fmt.Fprintf(s.out, "THE RATS ATE %d BUSHELS.\n", c.GrainEatenByRats())
	}
	fmt.Fprintf(s.out, "YOU NOW HAVE %d BUSHELS IN STORE.\n", c.Grain())
	fmt.Fprintf(s.out, "LAND IS TRADING AT %d BUSHELS PER ACRE.\n", c.AcrePrice())
}

// finish closes a game that ended in this session.
func (s *session) finish(ctx context.Context, g savedGame, out game.Outcome) {
	s.summarize(out)
	fmt.Fprint(s.out, farewell)

	s.dropSave()
	if err := s.repo.SaveGame(ctx, g, s.seed); err != nil {
		log.Printf("persist game failed: %v", err)
	}
	if err := s.repo.RecordResult(ctx, newTermRecord(g.ID, g.City, out)); err != nil {
		log.Printf("record result failed: %v", err)
	}
}

func (s *session) summarize(out game.Outcome) {
	switch o := out.(type) {
	case game.GameOver:
		fmt.Fprintf(s.out, "YOU STARVED %d PEOPLE IN ONE YEAR!!!\n", o.DeadFromHunger)
		fmt.Fprint(s.out, "DUE TO THIS EXTREME MISMANAGEMENT YOU HAVE NOT ONLY\n"+
			"BEEN IMPEACHED AND THROWN OUT OF OFFICE BUT YOU HAVE\n"+
			"ALSO BEEN DECLARED NATIONAL FINK!!!!\n")
	case game.TermComplete:
		stats, err := game.EvaluateTerm(o)
		if err != nil {
			fmt.Fprint(s.out, "THE CITY STANDS EMPTY. NOT ONE SOUL REMAINS\n"+
				"TO JUDGE YOUR TEN-YEAR TERM OF OFFICE.\n")
			break
		}
		fmt.Fprintf(s.out, "IN YOUR 10-YEAR TERM OF OFFICE, %d PERCENT OF THE\n", stats.AverageDeadPercent)
		fmt.Fprintf(s.out, "POPULATION STARVED PER YEAR ON THE AVERAGE, I.E. A TOTAL OF\n%d PEOPLE DIED!!\n", stats.DeadFromHunger)
		fmt.Fprintf(s.out, "YOU STARTED WITH 10 ACRES PER PERSON AND ENDED WITH\n%d ACRES PER PERSON\n", stats.AreaByPerson)
		fmt.Fprint(s.out, verdicts[stats.Rank])
	}
}

func (s *session) dropSave() {
	if !s.ownsSave {
		return
	}
	if err := removeSaveFile(s.cfg.SaveFile); err != nil {
		log.Printf("remove save failed: %v", err)
	}
}

// persist writes the save file, unless it holds another game, and mirrors
// the game into the repository.
func (s *session) persist(ctx context.Context, g savedGame) {
	if s.ownsSave {
		if err := writeSaveFile(s.cfg.SaveFile, g); err != nil {
			log.Printf("write save failed: %v", err)
		}
	}
	if err := s.repo.SaveGame(ctx, g, s.seed); err != nil {
		log.Printf("persist game failed: %v", err)
	}
}

func printRecords(w io.Writer, recs []TermRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "NO TERMS OF OFFICE RECORDED YET.")
		return
	}
	fmt.Fprintf(w, "%-20s %-10s %6s %6s %5s %6s %4s\n", "FINISHED", "OUTCOME", "YEARS", "DEAD", "PCT", "ACRES", "RANK")
	for _, r := range recs {
		rank := string(r.Rank)
		if rank == "" {
			rank = "-"
		}
		fmt.Fprintf(w, "%-20s %-10s %6d %6d %5d %6d %4s\n",
			r.FinishedAt.UTC().Format("2006-01-02 15:04:05"), r.Outcome,
			r.RoundsPlayed, r.DeadTotal, r.AverageDeadPercent, r.AreaByPerson, rank)
	}
}
