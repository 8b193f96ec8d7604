package robot

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// STS servos report a single-turn position in [0, servoResolution).
	servoResolution = 4096

	// Largest setpoint step per command at full power. Must stay under half
	// a turn so the unwrapped direction is unambiguous.
	defaultMaxStep = 512

	// A position move is complete within this many counts of the target.
	defaultTolerance = 10

	defaultBaudRate = 1_000_000
)

// ServoBus drives the robot's motors through Feetech STS servos on a single
// serial bus.
type ServoBus struct {
	bus    *feetech.Bus
	all    *feetech.ServoGroup
	motors map[MotorName]*servoMotor
	log    *zap.SugaredLogger
}

// OpenServoBus opens the configured bus, checks every mapped servo answers,
// and returns a Hardware handle that owns the bus.
func OpenServoBus(ctx context.Context, cfg *Config, logger *zap.SugaredLogger) (*Hardware, error) {
	if err := cfg.Motors.Validate(); err != nil {
		return nil, fmt.Errorf("motor mapping: %w", err)
	}

	baud := cfg.BaudRate
	if baud == 0 {
		baud = defaultBaudRate
	}

	// Open serial bus
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: baud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	ids := cfg.Motors.MotorIDs()
	if err := checkServos(ctx, bus, ids); err != nil {
		bus.Close()
		return nil, err
	}

	sb := &ServoBus{
		bus:    bus,
		all:    feetech.NewServoGroupByIDs(bus, ids...),
		motors: make(map[MotorName]*servoMotor, len(ids)),
		log:    logger,
	}

	motors := make(map[MotorName]Motor, len(ids))
	for _, name := range AllMotors() {
		mc := cfg.Motors[name]
		m := &servoMotor{
			name:      name,
			id:        mc.ID,
			reversed:  mc.Reversed,
			group:     feetech.NewServoGroupByIDs(bus, mc.ID),
			maxStep:   defaultMaxStep,
			tolerance: defaultTolerance,
		}
		sb.motors[name] = m
		motors[name] = m
	}

	if err := sb.all.EnableAll(ctx); err != nil {
		bus.Close()
		return nil, fmt.Errorf("enable torque: %w", err)
	}
	logger.Infow("servo bus ready", "port", cfg.Port, "servos", len(ids))

	return NewHardware(motors, clock.New(), sb)
}

func checkServos(ctx context.Context, bus *feetech.Bus, ids []int) error {
	lo, hi := ids[0], ids[0]
	for _, id := range ids {
		lo = min(lo, id)
		hi = max(hi, id)
	}

	scanCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	found, err := bus.Scan(scanCtx, lo, hi)
	if err != nil {
		return fmt.Errorf("scan servos: %w", err)
	}

	present := make(map[int]bool, len(found))
	for _, s := range found {
		present[s.ID] = true
	}
	for _, id := range ids {
		if !present[id] {
			return fmt.Errorf("servo %d not found on bus", id)
		}
	}
	return nil
}

// Close disables torque on all servos and closes the bus.
func (s *ServoBus) Close() error {
	err := s.all.DisableAll(context.Background())
	if err != nil {
		s.log.Warnw("disable torque failed", "error", err)
	}
	return multierr.Append(err, s.bus.Close())
}

// servoGroup is the part of a feetech.ServoGroup a servoMotor uses.
type servoGroup interface {
	Positions(ctx context.Context) (feetech.PositionMap, error)
	SetPositions(ctx context.Context, positions feetech.PositionMap) error
}

// servoMotor emulates an encoder motor on a position servo. The single-turn
// reading is unwrapped into a multi-turn count, and motion is produced by
// stepping the setpoint ahead of the current position on every command.
type servoMotor struct {
	name      MotorName
	id        int
	reversed  bool
	group     servoGroup
	maxStep   int
	tolerance int

	mu      sync.Mutex
	mode    RunMode
	power   float64
	target  int
	count   int // unwrapped raw count
	offset  int // logical zero, set by ResetEncoder
	lastRaw int
	primed  bool
}

func (m *servoMotor) sign() int {
	if m.reversed {
		return -1
	}
	return 1
}

// read refreshes the unwrapped count and returns the logical position.
func (m *servoMotor) read(ctx context.Context) (int, error) {
	positions, err := m.group.Positions(ctx)
	if err != nil {
		return 0, fmt.Errorf("read position: %w", err)
	}
	raw, ok := positions[m.id]
	if !ok {
		return 0, fmt.Errorf("servo %d did not report a position", m.id)
	}

	if m.primed {
		m.count += unwrapDelta(m.lastRaw, raw)
	}
	m.lastRaw = raw
	m.primed = true

	return m.sign()*m.count - m.offset, nil
}

// step moves the setpoint by a logical number of counts from the last reading.
func (m *servoMotor) step(ctx context.Context, counts int) error {
	raw := wrapRaw(m.lastRaw + m.sign()*counts)
	if err := m.group.SetPositions(ctx, feetech.PositionMap{m.id: raw}); err != nil {
		return fmt.Errorf("write position: %w", err)
	}
	return nil
}

func (m *servoMotor) SetPower(ctx context.Context, power float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.power = ClipPower(power)
	if m.mode == ResetEncoder {
		return nil
	}
	if _, err := m.read(ctx); err != nil {
		return err
	}
	if m.mode == PositionControl {
		_, err := m.advance(ctx)
		return err
	}
	return m.step(ctx, int(math.Round(m.power*float64(m.maxStep))))
}

func (m *servoMotor) SetMode(ctx context.Context, mode RunMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, err := m.read(ctx)
	if err != nil {
		return err
	}
	if mode == ResetEncoder {
		m.offset += pos
		m.power = 0
		if err := m.step(ctx, 0); err != nil {
			return err
		}
	}
	m.mode = mode
	return nil
}

func (m *servoMotor) SetTargetPosition(ctx context.Context, counts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.target = counts
	return nil
}

func (m *servoMotor) CurrentPosition(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.read(ctx)
}

// IsBusy reports whether a position move is still in progress. Each call
// while busy advances the setpoint toward the target.
func (m *servoMotor) IsBusy(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mode != PositionControl {
		return false, nil
	}
	if _, err := m.read(ctx); err != nil {
		return false, err
	}
	return m.advance(ctx)
}

// advance commands the next setpoint toward the target, capped by power.
// The caller must hold mu and have just read the position.
func (m *servoMotor) advance(ctx context.Context) (bool, error) {
	pos := m.sign()*m.count - m.offset
	remaining := m.target - pos
	if abs(remaining) <= m.tolerance {
		return false, nil
	}
	limit := int(math.Round(math.Abs(m.power) * float64(m.maxStep)))
	if err := m.step(ctx, clampStep(remaining, limit)); err != nil {
		return true, err
	}
	return true, nil
}

// unwrapDelta returns the signed shortest movement between two single-turn readings.
func unwrapDelta(prev, cur int) int {
	d := cur - prev
	switch {
	case d > servoResolution/2:
		d -= servoResolution
	case d < -servoResolution/2:
		d += servoResolution
	}
	return d
}

// wrapRaw maps any count into the servo's single-turn range.
func wrapRaw(raw int) int {
	raw %= servoResolution
	if raw < 0 {
		raw += servoResolution
	}
	return raw
}

func clampStep(remaining, limit int) int {
	switch {
	case remaining > limit:
		return limit
	case remaining < -limit:
		return -limit
	default:
		return remaining
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
