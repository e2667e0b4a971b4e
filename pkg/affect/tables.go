package affect

// PAD anchors per tag. The coordinates are design choices, not derived values.
var padTable = map[Tag]PAD{
	TagNeutral:   {Pleasure: 0.0, Arousal: 0.0, Dominance: 0.0},
	TagHappy:     {Pleasure: 0.8, Arousal: 0.4, Dominance: 0.3},
	TagSad:       {Pleasure: -0.6, Arousal: -0.4, Dominance: -0.3},
	TagAngry:     {Pleasure: -0.6, Arousal: 0.7, Dominance: 0.6},
	TagSurprised: {Pleasure: 0.2, Arousal: 0.8, Dominance: -0.1},
	TagExcited:   {Pleasure: 0.7, Arousal: 0.8, Dominance: 0.4},
	TagCalm:      {Pleasure: 0.4, Arousal: -0.5, Dominance: 0.2},
}

// Override pulses per tag, used by the pulse-based consumers. Separate from
// padTable on purpose: overrides replace the fused pulse, anchors move PAD.
var pulseTable = map[Tag]Pulse{
	TagNeutral:   {Valence: 0.0, Arousal: 0.5, Focus: 0.5},
	TagHappy:     {Valence: 0.8, Arousal: 0.6, Focus: 0.6},
	TagSad:       {Valence: -0.7, Arousal: 0.2, Focus: 0.4},
	TagAngry:     {Valence: -0.8, Arousal: 0.9, Focus: 0.8},
	TagSurprised: {Valence: 0.3, Arousal: 0.9, Focus: 0.7},
	TagExcited:   {Valence: 0.7, Arousal: 0.95, Focus: 0.7},
	TagCalm:      {Valence: 0.3, Arousal: 0.15, Focus: 0.5},
}

// gestureTags maps gestures onto the override they request.
var gestureTags = map[Gesture]Tag{
	GestureNod:       TagHappy,
	GestureShake:     TagSad,
	GestureWinkLeft:  TagExcited,
	GestureWinkRight: TagExcited,
}

// TagForGesture returns the override tag a gesture requests.
func TagForGesture(g Gesture) (Tag, bool) {
	t, ok := gestureTags[g]
	return t, ok
}
