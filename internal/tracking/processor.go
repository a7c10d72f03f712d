// Package tracking composes feature extraction, motion analysis, gesture
// resolution, push gating and calibration into one per-frame step.
package tracking

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/abhinaya/internal/calibration"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/face"
	"github.com/ayusman/abhinaya/internal/gesture"
	"github.com/ayusman/abhinaya/internal/pose"
)

// MaxHands is the number of hands considered per frame.
const MaxHands = 2

// Config holds the processor settings.
type Config struct {
	// FrameSkipInterval processes every Nth frame. Values below 1 mean 1.
	FrameSkipInterval int
	// PushCooldown spaces re-emissions of an unchanged gesture.
	PushCooldown time.Duration
	EnableFace   bool
	EnablePose   bool
}

// DefaultConfig returns the processor defaults.
func DefaultConfig() Config {
	return Config{
		FrameSkipInterval: 1,
		PushCooldown:      gesture.DefaultCooldown,
		EnableFace:        true,
		EnablePose:        true,
	}
}

// Processor turns detections into classifications and emitted records. All
// methods are safe for concurrent use; Process calls are serialized.
type Processor struct {
	mu       sync.Mutex
	cfg      Config
	logger   *zap.SugaredLogger
	engine   *calibration.Engine
	motion   *gesture.MotionTracker
	resolver *gesture.Resolver
	gates    *gesture.Gates

	frames int
	last   Result
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithCalibration maps emitted records onto the projector surface through e.
func WithCalibration(e *calibration.Engine) Option {
	return func(p *Processor) { p.engine = e }
}

// WithResolver replaces the default resolver.
func WithResolver(r *gesture.Resolver) Option {
	return func(p *Processor) { p.resolver = r }
}

// NewProcessor creates a Processor.
func NewProcessor(cfg Config, opts ...Option) *Processor {
	cfg = normalize(cfg)
	p := &Processor{
		cfg:      cfg,
		logger:   zap.NewNop().Sugar(),
		motion:   gesture.NewMotionTracker(),
		resolver: gesture.NewResolver(),
		gates:    gesture.NewGates(cfg.PushCooldown, gesture.Wave),
		last:     emptyResult(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func normalize(cfg Config) Config {
	if cfg.FrameSkipInterval < 1 {
		cfg.FrameSkipInterval = 1
	}
	if cfg.PushCooldown < 0 {
		cfg.PushCooldown = 0
	}
	return cfg
}

// Config returns the current settings.
func (p *Processor) Config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Configure applies new settings. Per-hand state is kept.
func (p *Processor) Configure(cfg Config) {
	cfg = normalize(cfg)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = cfg
	p.gates.SetCooldown(cfg.PushCooldown)
}

// Last returns the most recent result.
func (p *Processor) Last() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Reset drops all per-hand state and the last result.
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.motion = gesture.NewMotionTracker()
	p.resolver = gesture.NewResolver()
	p.gates = gesture.NewGates(p.cfg.PushCooldown, gesture.Wave)
	p.frames = 0
	p.last = emptyResult(0)
}

// Process handles one detection. Skipped frames return the previous result
// stamped with the new timestamp and nothing to emit.
func (p *Processor) Process(det detector.Detection) Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frames++
	if p.frames%p.cfg.FrameSkipInterval != 0 {
		res := p.last
		res.Timestamp = det.Timestamp
		res.Emitted = nil
		res.Skipped = true
		return res
	}

	ts := det.Timestamp
	res := emptyResult(ts)

	valid := p.processHands(det.Hands, ts, &res)
	p.processPair(valid, ts, &res)

	if p.cfg.EnableFace && det.Face != nil {
		if a, err := face.Analyze(*det.Face); err != nil {
			p.logger.Warnf("Skipping face sample: %v", err)
		} else {
			res.Face = a
		}
	}
	if p.cfg.EnablePose && det.Pose != nil {
		if a, err := pose.Analyze(*det.Pose); err != nil {
			p.logger.Warnf("Skipping pose sample: %v", err)
		} else {
			res.Pose = a
		}
	}

	res.Active = len(res.Hands) > 0 || res.Face != nil || res.Pose != nil
	p.last = res
	return res
}

// processHands classifies up to MaxHands hands and returns the features of
// the well-formed ones by entity.
func (p *Processor) processHands(hands []detector.Sample, ts int64, res *Result) map[string]gesture.Features {
	chosen := make(map[string]detector.Sample, MaxHands)
	for i, s := range hands {
		if i >= MaxHands {
			break
		}
		entity := handEntity(s)
		if err := s.Validate(); err != nil {
			p.logger.Warnf("Malformed %s hand sample: %v", entity, err)
			if _, ok := res.Hands[entity]; !ok {
				res.Hands[entity] = &HandResult{Classification: gesture.Unclassified(entity, ts)}
			}
			continue
		}
		if prev, ok := chosen[entity]; ok && offCentre(s) > offCentre(prev) {
			continue
		}
		chosen[entity] = s
	}

	valid := make(map[string]gesture.Features, len(chosen))
	for _, entity := range []string{gesture.EntityLeft, gesture.EntityRight} {
		s, ok := chosen[entity]
		if !ok {
			if _, malformed := res.Hands[entity]; !malformed {
				p.motion.Forget(entity)
				p.resolver.Reset(entity)
			}
			continue
		}

		feat, err := gesture.ExtractFeatures(s)
		if err != nil {
			p.logger.Warnf("Malformed %s hand sample: %v", entity, err)
			res.Hands[entity] = &HandResult{Classification: gesture.Unclassified(entity, ts)}
			continue
		}
		sig := p.motion.Observe(entity, feat.Wrist.X, feat.Wrist.Y, ts)
		c := p.resolver.Resolve(entity, feat, sig, ts)
		res.Hands[entity] = &HandResult{
			Classification: c,
			Landmarks:      append([]detector.Point3D(nil), s.Points...),
		}
		p.offer(c, res)
		valid[entity] = feat
	}
	return valid
}

func (p *Processor) processPair(valid map[string]gesture.Features, ts int64, res *Result) {
	left, okL := valid[gesture.EntityLeft]
	right, okR := valid[gesture.EntityRight]
	if !okL || !okR {
		p.motion.ForgetPair()
		return
	}
	trend := p.motion.ObservePair(detector.Distance2D(left.Wrist, right.Wrist), ts)
	if c, ok := p.resolver.ResolvePair(trend, left, right, ts); ok {
		res.Interaction = &c
		p.offer(c, res)
	}
}

func (p *Processor) offer(c gesture.Classification, res *Result) {
	if !p.gates.Offer(c) {
		return
	}
	rec := c.Record()
	if p.engine != nil {
		rec = p.engine.TransformGesture(rec)
	}
	res.Emitted = append(res.Emitted, rec)
}

// handEntity uses the detector's label when present and falls back to the
// thumb-versus-wrist rule.
func handEntity(s detector.Sample) string {
	switch s.Label {
	case gesture.EntityLeft, gesture.EntityRight:
		return s.Label
	}
	return gesture.InferHandedness(s)
}

// offCentre is the wrist's horizontal distance from the image centre in
// gesture coordinates.
func offCentre(s detector.Sample) float64 {
	return math.Abs(s.Points[detector.Wrist].X*2 - 1)
}
