package game

// Apply replays one action over a clone of the given snapshot and
// returns the clone. The input state is never touched, identical
// inputs produce identical outputs. Only content fields change here;
// revision, clock and checksum are stamped by the caller.
func Apply(s *State, a Action) (*State, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	next := s.Clone()
	var err error
	switch p := a.Payload.(type) {
	case DrawPayload:
		err = applyDraw(next, p)
	case PlayPayload:
		err = moveCard(next, p.Card, p.From, p.To)
	case TapPayload:
		err = applyTap(next, p.Card)
	case UntapPayload:
		err = applyUntap(next, p.Card)
	case MoveZonePayload:
		err = moveCard(next, p.Card, p.From, p.To)
	case ChangeLifePayload:
		err = applyChangeLife(next, p)
	case AddCounterPayload:
		err = applyCounter(next, p.Target, p.Kind, p.Count)
	case RemoveCounterPayload:
		err = applyCounter(next, p.Target, p.Kind, -p.Count)
	case AdvancePhasePayload:
		err = applyAdvancePhase(next)
	case AddToStackPayload:
		err = moveCard(next, p.Card, p.From, ZoneStack)
	case ResolveStackPayload:
		err = applyResolveStack(next, p.To)
	case ConcedePayload:
		err = applyConcede(next, a.Actor)
	case PassPriorityPayload:
		applyPassPriority(next)
	}
	if err != nil {
		return nil, err
	}
	return next, nil
}

func applyDraw(s *State, p DrawPayload) error {
	if s.Players[p.Player] == nil {
		return invalid("draw for unknown player %q", p.Player)
	}
	lib := s.Zone(PlayerZone(ZoneLibrary, p.Player))
	if lib == nil || len(lib.Cards) == 0 {
		return invalid("library of %q is empty", p.Player)
	}
	card := lib.removeAt(0)
	hand := s.EnsureZone(PlayerZone(ZoneHand, p.Player))
	hand.Cards = append(hand.Cards, card)
	return nil
}

func moveCard(s *State, cardID, from, to string) error {
	src := s.Zone(from)
	if src == nil {
		return invalid("unknown zone %q", from)
	}
	i := src.indexOf(cardID)
	if i < 0 {
		return invalid("card %q is not in zone %q", cardID, from)
	}
	card := src.removeAt(i)
	dst := s.EnsureZone(to)
	dst.Cards = append(dst.Cards, card)
	return nil
}

func applyTap(s *State, cardID string) error {
	zoneID, i, ok := s.FindCard(cardID)
	if !ok {
		return invalid("unknown card %q", cardID)
	}
	z := s.Zones[zoneID]
	if z.Cards[i].Tapped {
		return invalid("card %q is already tapped", cardID)
	}
	z.Cards[i].Tapped = true
	return nil
}

func applyUntap(s *State, cardID string) error {
	zoneID, i, ok := s.FindCard(cardID)
	if !ok {
		return invalid("unknown card %q", cardID)
	}
	z := s.Zones[zoneID]
	if !z.Cards[i].Tapped {
		return invalid("card %q is not tapped", cardID)
	}
	z.Cards[i].Tapped = false
	return nil
}

func applyChangeLife(s *State, p ChangeLifePayload) error {
	player := s.Players[p.Player]
	if player == nil {
		return invalid("unknown player %q", p.Player)
	}
	player.Life += p.Delta
	return nil
}

// applyCounter adds delta to the named counter of a player or a card.
// Deltas are plain additions so that concurrent adjustments commute;
// an entry reaching exactly zero is dropped to keep snapshots
// canonical.
func applyCounter(s *State, target, kind string, delta int) error {
	if player := s.Players[target]; player != nil {
		player.Counters = bumpCounter(player.Counters, kind, delta)
		return nil
	}
	zoneID, i, ok := s.FindCard(target)
	if !ok {
		return invalid("unknown counter target %q", target)
	}
	z := s.Zones[zoneID]
	z.Cards[i].Counters = bumpCounter(z.Cards[i].Counters, kind, delta)
	return nil
}

func bumpCounter(counters map[string]int, kind string, delta int) map[string]int {
	if counters == nil {
		counters = make(map[string]int)
	}
	counters[kind] += delta
	if counters[kind] == 0 {
		delete(counters, kind)
	}
	return counters
}

func applyAdvancePhase(s *State) error {
	i := phaseIndex(s.Phase)
	if i < 0 {
		return invalid("state carries unknown phase %q", s.Phase)
	}
	if i+1 < len(Phases) {
		s.Phase = Phases[i+1]
	} else {
		s.Phase = Phases[0]
		s.Turn++
		s.Active = s.nextPlayer(s.Active)
	}
	s.Priority = s.Active
	return nil
}

func phaseIndex(phase string) int {
	for i, p := range Phases {
		if p == phase {
			return i
		}
	}
	return -1
}

func applyResolveStack(s *State, to string) error {
	stack := s.Zone(ZoneStack)
	if stack == nil || len(stack.Cards) == 0 {
		return invalid("stack is empty")
	}
	// the top of the stack is its last card
	card := stack.removeAt(len(stack.Cards) - 1)
	dst := s.EnsureZone(to)
	dst.Cards = append(dst.Cards, card)
	return nil
}

func applyConcede(s *State, actor string) error {
	player := s.Players[actor]
	if player == nil {
		return invalid("unknown player %q", actor)
	}
	player.Conceded = true
	return nil
}

func applyPassPriority(s *State) {
	cur := s.Priority
	if cur == "" {
		cur = s.Active
	}
	s.Priority = s.nextPlayer(cur)
}
