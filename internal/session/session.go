package session

import (
	"sync"
	"time"
)

// State identifies where a user currently is in a conversational flow.
type State int

const (
	StateIdle State = iota
	StateUploadingPhotos
	StateEnteringModelName
	StateSelectingModelType
	StateTrainingModel
	StateSelectingModel
	StateEnteringPrompt
	StateGeneratingImages
	StateEnteringModelNameForMediaGroup
	StateSelectingModelTypeForMediaGroup
)

var stateNames = map[State]string{
	StateIdle:                            "idle",
	StateUploadingPhotos:                 "uploading_photos",
	StateEnteringModelName:               "entering_model_name",
	StateSelectingModelType:              "selecting_model_type",
	StateTrainingModel:                   "training_model",
	StateSelectingModel:                  "selecting_model",
	StateEnteringPrompt:                  "entering_prompt",
	StateGeneratingImages:                "generating_images",
	StateEnteringModelNameForMediaGroup:  "entering_model_name_for_media_group",
	StateSelectingModelTypeForMediaGroup: "selecting_model_type_for_media_group",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Store holds per-user conversation state and scratch data in memory.
// Unknown user ids are never an error: reads return StateIdle and empty
// scratch, writes create the session lazily. Sessions idle beyond the TTL
// are removed by CleanupInactiveSessions.
type Store struct {
	stateMu  sync.Mutex
	states   map[int64]State
	activity map[int64]time.Time

	dataMu sync.Mutex
	data   map[int64]map[string]interface{}

	ttl      time.Duration
	preserve []string
}

// NewStore creates a session store. preserveKeys are scratch keys that
// survive ResetState and ClearAll, so that values entered before a flow
// reset (model name, model type, chat id) remain usable afterwards.
func NewStore(ttl time.Duration, preserveKeys []string) *Store {
	return &Store{
		states:   make(map[int64]State),
		activity: make(map[int64]time.Time),
		data:     make(map[int64]map[string]interface{}),
		ttl:      ttl,
		preserve: append([]string(nil), preserveKeys...),
	}
}

func (s *Store) touch(userID int64) {
	s.stateMu.Lock()
	s.activity[userID] = time.Now()
	s.stateMu.Unlock()
}

// GetState returns the user's current state, StateIdle for unseen users.
func (s *Store) GetState(userID int64) State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.activity[userID] = time.Now()
	return s.states[userID]
}

// SetState overwrites the user's current state.
func (s *Store) SetState(userID int64, state State) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.states[userID] = state
	s.activity[userID] = time.Now()
}

// ResetState returns the user to StateIdle and clears scratch data,
// keeping only the preserved keys.
func (s *Store) ResetState(userID int64) {
	s.dataMu.Lock()
	scratch := s.data[userID]
	kept := make(map[string]interface{})
	for _, key := range s.preserve {
		if v, ok := scratch[key]; ok {
			kept[key] = v
		}
	}
	s.data[userID] = kept
	s.dataMu.Unlock()

	s.SetState(userID, StateIdle)
}

// GetData returns a copy of one scratch value, or nil if absent.
func (s *Store) GetData(userID int64, key string) interface{} {
	s.touch(userID)
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	v, ok := s.data[userID][key]
	if !ok {
		return nil
	}
	return copyValue(v)
}

// Data returns a copy of the user's entire scratch mapping. Never nil.
func (s *Store) Data(userID int64) map[string]interface{} {
	s.touch(userID)
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	out := make(map[string]interface{}, len(s.data[userID]))
	for k, v := range s.data[userID] {
		out[k] = copyValue(v)
	}
	return out
}

// SetData stores one scratch value. Structured values (slices, maps) are
// copied so later mutation of the caller's value does not alias the store.
func (s *Store) SetData(userID int64, key string, value interface{}) {
	s.touch(userID)
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.scratchLocked(userID)[key] = copyValue(value)
}

// UpdateData merges a mapping into the user's scratch, same copy semantics
// as SetData.
func (s *Store) UpdateData(userID int64, values map[string]interface{}) {
	s.touch(userID)
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	scratch := s.scratchLocked(userID)
	for k, v := range values {
		scratch[k] = copyValue(v)
	}
}

// ClearData removes a single scratch key. Removing an absent key is a no-op.
func (s *Store) ClearData(userID int64, key string) {
	s.touch(userID)
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	delete(s.data[userID], key)
}

// ClearAll removes all scratch keys except the preserved ones.
func (s *Store) ClearAll(userID int64) {
	s.touch(userID)
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	scratch := s.data[userID]
	if scratch == nil {
		return
	}
	kept := make(map[string]interface{})
	for _, key := range s.preserve {
		if v, ok := scratch[key]; ok {
			kept[key] = v
		}
	}
	s.data[userID] = kept
}

// AddToList appends a string to a scratch accumulator field.
func (s *Store) AddToList(userID int64, key, value string) {
	s.touch(userID)
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	scratch := s.scratchLocked(userID)
	list, _ := scratch[key].([]string)
	scratch[key] = append(list, value)
}

// GetList returns a copy of a scratch accumulator field, nil if absent.
func (s *Store) GetList(userID int64, key string) []string {
	s.touch(userID)
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	list, ok := s.data[userID][key].([]string)
	if !ok {
		return nil
	}
	return append([]string(nil), list...)
}

// CleanupInactiveSessions removes sessions whose last activity is older
// than the TTL and returns how many were removed.
func (s *Store) CleanupInactiveSessions() int {
	cutoff := time.Now().Add(-s.ttl)

	s.stateMu.Lock()
	var expired []int64
	for userID, last := range s.activity {
		if last.Before(cutoff) {
			expired = append(expired, userID)
		}
	}
	for _, userID := range expired {
		delete(s.states, userID)
		delete(s.activity, userID)
	}
	s.stateMu.Unlock()

	s.dataMu.Lock()
	for _, userID := range expired {
		delete(s.data, userID)
	}
	s.dataMu.Unlock()

	return len(expired)
}

// scratchLocked returns the user's scratch map, creating it if needed.
// Caller must hold dataMu.
func (s *Store) scratchLocked(userID int64) map[string]interface{} {
	scratch, ok := s.data[userID]
	if !ok {
		scratch = make(map[string]interface{})
		s.data[userID] = scratch
	}
	return scratch
}

// copyValue deep-copies the value kinds the scratchpad holds: strings,
// numbers, string slices, and nested maps/slices of the same.
func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []string:
		return append([]string(nil), val...)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
