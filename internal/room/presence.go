package room

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// ambientMember scripts one simulated participant's behavior: when they
// arrive, how long they stay, and how their focus state cycles.
type ambientMember struct {
	participant Participant
	room        string
	joinTick    int
	leaveTick   int // 0 = stays for the whole run
	focusPeriod int // ticks per focus on/off cycle
	present     bool
}

var ambientNames = []string{
	"Quiet Fox", "Night Owl", "Early Bird", "Steady Turtle",
	"Calm Heron", "Busy Beaver", "Patient Panda", "Swift Swallow",
}

// Presence animates a handful of simulated participants through the
// configured rooms so they feel inhabited even with a single real user.
type Presence struct {
	registry *Registry
	interval time.Duration
	members  []*ambientMember
	rng      *rand.Rand
}

// NewPresence builds a simulator over the registry's rooms. seed fixes the
// generated schedule for tests; pass 0 to randomize.
func NewPresence(registry *Registry, interval time.Duration, seed int64) *Presence {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	p := &Presence{
		registry: registry,
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
	}
	p.buildSchedule()
	return p
}

func (p *Presence) buildSchedule() {
	rooms := p.registry.List()
	if len(rooms) == 0 {
		return
	}

	nameIdx := 0
	for _, rm := range rooms {
		// Two to three ambient members per room, capped by capacity so a
		// real user can always still join.
		count := 2 + p.rng.Intn(2)
		if max := rm.Capacity - 1; count > max {
			count = max
		}
		for i := 0; i < count; i++ {
			name := ambientNames[nameIdx%len(ambientNames)]
			nameIdx++
			m := &ambientMember{
				participant: Participant{
					ID:      "ambient-" + rm.ID + "-" + name,
					Name:    name,
					Ambient: true,
				},
				room:        rm.ID,
				joinTick:    p.rng.Intn(6),
				focusPeriod: 4 + p.rng.Intn(6),
			}
			// Roughly half the members leave mid-run and come back next cycle.
			if p.rng.Intn(2) == 0 {
				m.leaveTick = m.joinTick + 20 + p.rng.Intn(20)
			}
			p.members = append(p.members, m)
		}
	}
}

// Start launches the simulation loop. It stops when ctx is cancelled.
func (p *Presence) Start(ctx context.Context) {
	if len(p.members) == 0 {
		return
	}
	go p.run(ctx)
}

func (p *Presence) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			p.Advance(tick)
		}
	}
}

// Advance moves the simulation forward one tick. Exported so tests can
// drive it without the ticker.
func (p *Presence) Advance(tick int) {
	for _, m := range p.members {
		switch {
		case !m.present && tick >= m.joinTick && (m.leaveTick == 0 || tick < m.leaveTick):
			if _, err := p.registry.Join(m.room, m.participant); err != nil {
				// Room may be full of real users; retry next tick.
				if err != ErrRoomFull {
					log.Printf("Ambient join failed for %s: %v", m.room, err)
				}
				continue
			}
			m.present = true

		case m.present && m.leaveTick > 0 && tick >= m.leaveTick:
			if _, err := p.registry.Leave(m.room, m.participant.ID); err == nil {
				m.present = false
				// Schedule the next visit.
				m.joinTick = tick + 10 + p.rng.Intn(15)
				m.leaveTick = m.joinTick + 20 + p.rng.Intn(20)
			}

		case m.present:
			age := tick - m.joinTick
			focusing := (age/m.focusPeriod)%2 == 0
			p.registry.SetFocusing(m.room, m.participant.ID, focusing)
		}
	}
}
