// Package beep plays short audio cues for recording state changes.
package beep

import (
	"math"

	"yada/pipeline"
)

const (
	sampleRate = 44100

	// Start beep: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End beep: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

type Sound int

const (
	Start Sound = iota
	End
	Fail
)

// tick renders a decaying sine as mono samples.
func tick(freq, duration, volume, decay float64) []int16 {
	n := int(float64(sampleRate) * duration)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		envelope := math.Exp(-t * decay)
		samples[i] = int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
	}
	return samples
}

func doubleBeep(freq, beepDur, gapDur, volume, decay float64) []int16 {
	beep := tick(freq, beepDur, volume, decay)
	gap := make([]int16, int(float64(sampleRate)*gapDur))
	result := make([]int16, 0, len(beep)*2+len(gap))
	result = append(result, beep...)
	result = append(result, gap...)
	result = append(result, beep...)
	return result
}

// Cues is a pipeline listener that plays Start when recording begins,
// End when capture stops and Fail when a run ends in error.
type Cues struct {
	play func(Sound)
	prev pipeline.Status
}

func NewCues() *Cues {
	Init()
	return &Cues{play: Play}
}

func (c *Cues) StatusChanged(u pipeline.Update) {
	prev := c.prev
	c.prev = u.Status
	switch {
	case u.Status == pipeline.Recording:
		c.play(Start)
	case u.Status == pipeline.Transcribing && prev == pipeline.Recording:
		c.play(End)
	case u.Status == pipeline.Error:
		c.play(Fail)
	}
}
