package combat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/game/dice"
	"github.com/cory-johannsen/combatsim/internal/game/effect"
)

// DefaultMaxTurns bounds a single combat.
const DefaultMaxTurns = 1000

// SimulationMode carries per-call output switches through the loop.
type SimulationMode struct {
	// Quiet suppresses per-turn logging.
	Quiet bool
	// RecordEvents keeps every TurnEvent in Result.Events.
	RecordEvents bool
}

// Config parameterises a Simulator.
type Config struct {
	MaxTurns   int
	Thresholds Thresholds
	// Scheduler decides turn order; nil selects AlternatingScheduler.
	Scheduler Scheduler
	Effects   effect.Config
	Mode      SimulationMode
}

// DefaultConfig returns the configuration used when no overrides are given.
func DefaultConfig() Config {
	return Config{
		MaxTurns:   DefaultMaxTurns,
		Thresholds: DefaultThresholds(),
		Scheduler:  AlternatingScheduler{},
		Effects:    effect.DefaultConfig(),
	}
}

// Side identifies a participant in a one-on-one combat.
type Side int

const (
	SideNone Side = iota
	SideAttacker
	SideDefender
)

// String returns "attacker", "defender" or "none".
func (s Side) String() string {
	switch s {
	case SideAttacker:
		return "attacker"
	case SideDefender:
		return "defender"
	default:
		return "none"
	}
}

// Result is the record of one simulated combat. It is never mutated after
// SimulateCombat returns.
//
// Invariant: Inconclusive iff Winner == SideNone. Phase1Turns + Phase2Turns +
// Phase3Turns == Turns.
type Result struct {
	Seed         uint64
	Winner       Side
	Inconclusive bool
	Turns        int

	Phase1Turns int
	Phase2Turns int
	Phase3Turns int

	AttackerDamage      int
	DefenderDamage      int
	AttackerFinalHealth int
	DefenderFinalHealth int

	// HealthTrace holds the defender's health fraction after each turn.
	HealthTrace []float64
	// Events is populated only with SimulationMode.RecordEvents.
	Events []TurnEvent
	// Err explains why the result is inconclusive.
	Err error
}

// AttackerWon reports whether the attacker won.
func (r Result) AttackerWon() bool { return r.Winner == SideAttacker }

// Simulator runs combats with a fixed configuration. It holds no mutable
// state and may be shared by concurrent batch workers provided its
// ConditionEvaluator is safe for concurrent use. An EncounterScoped evaluator
// only needs a concurrency-safe ForEncounter.
type Simulator struct {
	cfg      Config
	effects  *effect.Engine
	damage   *DamageCalculator
	selector *Selector
	cond     ConditionEvaluator
	logger   *zap.Logger
}

// NewSimulator creates a Simulator. cond may be nil; a nil logger discards
// output.
//
// Postcondition: Returns a non-nil Simulator with zero config fields filled
// from DefaultConfig.
func NewSimulator(cfg Config, cond ConditionEvaluator, logger *zap.Logger) *Simulator {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = AlternatingScheduler{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	effects := effect.NewEngine(cfg.Effects)
	return &Simulator{
		cfg:      cfg,
		effects:  effects,
		damage:   NewDamageCalculator(effects),
		selector: NewSelector(cond),
		cond:     cond,
		logger:   logger,
	}
}

// Config returns the simulator's effective configuration.
func (s *Simulator) Config() Config { return s.cfg }

// encounter is the per-combat state shared by the turn functions.
type encounter struct {
	sim      *Simulator
	selector *Selector
	src      dice.Source
	roller   *dice.Roller
	resolver *RollResolver
	turn     int
}

// SimulateCombat runs attacker against defender until one dies or the turn
// cap is reached. All randomness derives from seed, so equal inputs yield
// identical results.
//
// Precondition: both snapshots pass Validate; a missing basic attack falls
// back to DefaultBasicAttack.
// Postcondition: Result.Turns <= MaxTurns; Inconclusive iff no side died.
func (s *Simulator) SimulateCombat(attacker, defender Snapshot, seed uint64) Result {
	sel := s.selector
	if scoped, ok := s.cond.(EncounterScoped); ok {
		eval, release, err := scoped.ForEncounter()
		if err != nil {
			return Result{Seed: seed, Inconclusive: true, Err: fmt.Errorf("opening condition scope: %w", err)}
		}
		defer release()
		sel = NewSelector(eval)
	}

	src := dice.NewSeededSource(seed)
	rollLogger := zap.NewNop()
	if !s.cfg.Mode.Quiet {
		rollLogger = s.logger
	}
	enc := &encounter{
		sim:      s,
		selector: sel,
		src:      src,
		roller:   dice.NewLoggedRoller(src, rollLogger),
		resolver: NewRollResolver(src, s.cfg.Thresholds),
	}

	a, d := NewCombatant(attacker), NewCombatant(defender)
	res := Result{Seed: seed}
	sched := s.cfg.Scheduler

	for !a.IsDead() && !d.IsDead() {
		if enc.turn >= s.cfg.MaxTurns {
			res.Inconclusive = true
			res.Err = fmt.Errorf("turn cap %d reached", s.cfg.MaxTurns)
			break
		}
		enc.turn++

		actor, target := sched.Next(a, d, enc.turn)
		ev := enc.takeTurn(actor, target)
		sched.Acted(actor, ev.Cost)

		ev.Ticks = s.tick(actor, target)

		res.HealthTrace = append(res.HealthTrace, d.HealthFraction())
		if s.cfg.Mode.RecordEvents {
			res.Events = append(res.Events, ev)
		}
		if !s.cfg.Mode.Quiet {
			s.logger.Debug("turn",
				zap.Int("turn", ev.Turn),
				zap.String("actor", ev.Actor),
				zap.String("outcome", ev.Outcome.String()),
				zap.String("action", ev.Action),
				zap.Int("damage", ev.Damage),
				zap.Int("attacker_hp", a.Health()),
				zap.Int("defender_hp", d.Health()),
			)
		}
	}

	switch {
	case d.IsDead():
		res.Winner = SideAttacker
	case a.IsDead():
		res.Winner = SideDefender
	}
	res.Turns = enc.turn
	p := DetectPhases(res.HealthTrace)
	res.Phase1Turns, res.Phase2Turns, res.Phase3Turns = p.One, p.Two, p.Three
	res.AttackerDamage = a.DamageDealt()
	res.DefenderDamage = d.DamageDealt()
	res.AttackerFinalHealth = a.Health()
	res.DefenderFinalHealth = d.Health()
	return res
}

// tick advances c's status effects at the end of c's own turn, skipped or
// not, and credits damage-over-time to opponent. A duration of N therefore
// spans N of its bearer's turns.
func (s *Simulator) tick(c, opponent *Combatant) []string {
	notes := s.effects.Tick(c)
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		opponent.damageDealt += n.Damage
		out = append(out, fmt.Sprintf("%s: %s", c.Name(), n))
	}
	return out
}

// SimulateCombat runs one combat with DefaultConfig, quiet output, and only
// built-in trigger conditions.
func SimulateCombat(attacker, defender Snapshot, seed uint64) Result {
	cfg := DefaultConfig()
	cfg.Mode.Quiet = true
	return NewSimulator(cfg, nil, nil).SimulateCombat(attacker, defender, seed)
}
