package telegram

import "sync"

// UserState текущий шаг диалога пользователя
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Ментор вводит слоты для предложения
	StateProposingSlots UserState = "proposing_slots"
)

const dataProposalID = "proposal_id"

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State UserState
	Data  map[string]interface{}
}

// StateManager управляет состояниями пользователей
type StateManager struct {
	mu     sync.RWMutex
	states map[int64]*UserData // telegramID -> UserData
}

func NewStateManager() *StateManager {
	return &StateManager{
		states: make(map[int64]*UserData),
	}
}

// GetState получает текущее состояние пользователя
func (sm *StateManager) GetState(telegramID int64) UserState {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if userData, exists := sm.states[telegramID]; exists {
		return userData.State
	}
	return StateNone
}

// Begin начинает диалог с данными, затирая предыдущий
func (sm *StateManager) Begin(telegramID int64, state UserState, data map[string]interface{}) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if data == nil {
		data = make(map[string]interface{})
	}
	sm.states[telegramID] = &UserData{State: state, Data: data}
}

// GetInt64 получает числовое значение из данных диалога
func (sm *StateManager) GetInt64(telegramID int64, key string) (int64, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	userData, exists := sm.states[telegramID]
	if !exists {
		return 0, false
	}
	v, ok := userData.Data[key].(int64)
	return v, ok
}

// ClearState очищает состояние и данные пользователя
func (sm *StateManager) ClearState(telegramID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.states, telegramID)
}
