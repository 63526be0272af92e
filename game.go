package main

import (
	"bufio"
	"errors"
	"math/rand"
	"os"
	"strings"
)

// defaultWords is the built-in word list, overridable with --word-list.
var defaultWords = []string{
	"casa", "árbol", "sol", "luna", "estrella", "mar", "montaña",
	"río", "nube", "flor", "perro", "gato", "pájaro", "pez",
	"coche", "tren", "avión", "barco", "bicicleta", "moto",
}

// loadWords reads one word per line from path, or returns the built-in
// list when path is empty.
func loadWords(path string) ([]string, error) {
	if path == "" {
		return defaultWords, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var words []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word != "" {
			words = append(words, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(words) == 0 {
		return nil, errors.New("word list is empty: " + path)
	}

	return words, nil
}

// engine holds the turn and scoring rules. Every method assumes the
// coordinator's lock is held. The pick function is only replaced in
// tests.
type engine struct {
	words []string
	pick  func(n int) int
}

func newEngine(words []string) *engine {
	return &engine{
		words: words,
		pick:  rand.Intn,
	}
}

// assignDrawer makes p the sole drawer and deals it a random word.
func (e *engine) assignDrawer(s *Session, p *Player) {
	s.clearDrawer()

	p.IsDrawer = true
	s.currentDrawer = p.Name
	s.currentWord = e.words[e.pick(len(e.words))]
}

// selectDrawer picks a drawer uniformly at random from the connected
// players. The previous drawer is not excluded, so the same player may
// be selected again. With no connected players the session is left
// drawer-less.
func (e *engine) selectDrawer(s *Session) {
	candidates := s.connectedPlayers()
	if len(candidates) == 0 {
		s.clearDrawer()

		return
	}

	e.assignDrawer(s, candidates[e.pick(len(candidates))])
}

// evaluateGuess applies a guess and reports whether it matched. A miss
// is silent: guesses while the session is paused, from unknown or
// disconnected players, or from the drawer itself all simply fail to
// match. On a hit both the guesser and the drawer score a point and a
// new drawer is selected.
func (e *engine) evaluateGuess(s *Session, name, guess string) bool {
	if !s.started || s.paused {
		return false
	}

	player, ok := s.players[name]
	if !ok || !player.IsConnected || player.IsDrawer {
		return false
	}

	if s.currentWord == "" || !strings.EqualFold(guess, s.currentWord) {
		return false
	}

	player.Score++
	if drawer, ok := s.players[s.currentDrawer]; ok {
		drawer.Score++
	}

	e.selectDrawer(s)

	return true
}
