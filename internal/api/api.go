// Package api is the operation surface the presentation layer calls into.
// Every operation returns a uniform success/error envelope; no operation
// panics or raises past this boundary.
package api

import (
	"fmt"
	"os"
	"strings"

	"pressurebench/internal/device"
	"pressurebench/internal/store"
)

// Result is the envelope shared by every operation response.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func okResult() Result {
	return Result{Success: true}
}

func failResult(err error) Result {
	return Result{Error: err.Error()}
}

// API binds the entity store and the device link behind one operation set.
type API struct {
	store  *store.Store
	device *device.Manager
}

// New returns the operation surface over the given store and device manager.
func New(st *store.Store, dev *device.Manager) *API {
	return &API{store: st, device: dev}
}

// Store exposes the underlying store for read-only collaborators.
func (a *API) Store() *store.Store {
	return a.store
}

// ---- patients ----

type UsersResponse struct {
	Result
	Users []store.UserSummary `json:"users"`
}

type UserResponse struct {
	Result
	User store.User `json:"user"`
}

func (a *API) ListUsers() UsersResponse {
	users, err := a.store.ListUsers()
	if err != nil {
		return UsersResponse{Result: failResult(err)}
	}
	return UsersResponse{Result: okResult(), Users: users}
}

func (a *API) CreateUser(name, notes string) UserResponse {
	u, err := a.store.CreateUser(name, notes)
	if err != nil {
		return UserResponse{Result: failResult(err)}
	}
	return UserResponse{Result: okResult(), User: u}
}

func (a *API) GetUser(userID string) UserResponse {
	u, err := a.store.GetUser(userID)
	if err != nil {
		return UserResponse{Result: failResult(err)}
	}
	return UserResponse{Result: okResult(), User: u}
}

func (a *API) UpdateUser(userID string, name, notes *string) Result {
	if err := a.store.UpdateUser(userID, name, notes); err != nil {
		return failResult(err)
	}
	return okResult()
}

func (a *API) DeleteUser(userID string) Result {
	if err := a.store.DeleteUser(userID); err != nil {
		return failResult(err)
	}
	return okResult()
}

// ---- body parts ----

type BodyPartsResponse struct {
	Result
	BodyParts []store.BodyPartSummary `json:"bodyParts"`
}

type BodyPartResponse struct {
	Result
	BodyPart store.BodyPart `json:"bodyPart"`
}

func (a *API) ListBodyParts(userID string) BodyPartsResponse {
	parts, err := a.store.ListBodyParts(userID)
	if err != nil {
		return BodyPartsResponse{Result: failResult(err)}
	}
	return BodyPartsResponse{Result: okResult(), BodyParts: parts}
}

func (a *API) CreateBodyPart(userID, label, notes string) BodyPartResponse {
	bp, err := a.store.CreateBodyPart(userID, label, notes)
	if err != nil {
		return BodyPartResponse{Result: failResult(err)}
	}
	return BodyPartResponse{Result: okResult(), BodyPart: bp}
}

func (a *API) GetBodyPart(userID, bodyPartID string) BodyPartResponse {
	bp, err := a.store.GetBodyPart(userID, bodyPartID)
	if err != nil {
		return BodyPartResponse{Result: failResult(err)}
	}
	return BodyPartResponse{Result: okResult(), BodyPart: bp}
}

func (a *API) UpdateBodyPart(userID, bodyPartID string, label, notes *string) Result {
	if err := a.store.UpdateBodyPart(userID, bodyPartID, label, notes); err != nil {
		return failResult(err)
	}
	return okResult()
}

func (a *API) DeleteBodyPart(userID, bodyPartID string) Result {
	if err := a.store.DeleteBodyPart(userID, bodyPartID); err != nil {
		return failResult(err)
	}
	return okResult()
}

// ---- sessions and readings ----

type SessionsResponse struct {
	Result
	Sessions []store.SessionSummary `json:"sessions"`
}

type SessionResponse struct {
	Result
	Session store.Session `json:"session"`
}

type HistoryResponse struct {
	Result
	Points []store.HistoryPoint `json:"points"`
}

type ExportResponse struct {
	Result
	Path string `json:"path,omitempty"`
}

func (a *API) ListSessions(userID, bodyPartID string) SessionsResponse {
	sessions, err := a.store.ListSessions(userID, bodyPartID)
	if err != nil {
		return SessionsResponse{Result: failResult(err)}
	}
	return SessionsResponse{Result: okResult(), Sessions: sessions}
}

func (a *API) CreateSession(userID, bodyPartID, notes string, wireDiameter, calibrationMass float64) SessionResponse {
	sess, err := a.store.CreateSession(userID, bodyPartID, notes, wireDiameter, calibrationMass)
	if err != nil {
		return SessionResponse{Result: failResult(err)}
	}
	return SessionResponse{Result: okResult(), Session: sess}
}

func (a *API) GetSession(userID, bodyPartID, sessionID string) SessionResponse {
	sess, err := a.store.GetSession(userID, bodyPartID, sessionID)
	if err != nil {
		return SessionResponse{Result: failResult(err)}
	}
	return SessionResponse{Result: okResult(), Session: sess}
}

func (a *API) UpdateSessionNotes(userID, bodyPartID, sessionID, notes string) Result {
	if err := a.store.UpdateSessionNotes(userID, bodyPartID, sessionID, notes); err != nil {
		return failResult(err)
	}
	return okResult()
}

func (a *API) DeleteSession(userID, bodyPartID, sessionID string) Result {
	if err := a.store.DeleteSession(userID, bodyPartID, sessionID); err != nil {
		return failResult(err)
	}
	return okResult()
}

func (a *API) AddReading(userID, bodyPartID, sessionID string, slot int, grams, stress float64) Result {
	if err := a.store.AddReading(userID, bodyPartID, sessionID, slot, grams, stress); err != nil {
		return failResult(err)
	}
	return okResult()
}

func (a *API) DeleteReading(userID, bodyPartID, sessionID string, slot int) Result {
	if err := a.store.DeleteReading(userID, bodyPartID, sessionID, slot); err != nil {
		return failResult(err)
	}
	return okResult()
}

// History aggregates complete sessions for the trend view.
func (a *API) History(userID, bodyPartID string) HistoryResponse {
	points, err := a.store.History(userID, bodyPartID)
	if err != nil {
		return HistoryResponse{Result: failResult(err)}
	}
	return HistoryResponse{Result: okResult(), Points: points}
}

// ExportSession writes the annotated session payload to the caller-chosen
// destination path.
func (a *API) ExportSession(userID, bodyPartID, sessionID, destPath string) ExportResponse {
	destPath = strings.TrimSpace(destPath)
	if destPath == "" {
		return ExportResponse{Result: failResult(fmt.Errorf("export destination path is required"))}
	}
	payload, err := a.store.ExportSession(userID, bodyPartID, sessionID)
	if err != nil {
		return ExportResponse{Result: failResult(err)}
	}
	if err := os.WriteFile(destPath, payload, 0o644); err != nil {
		return ExportResponse{Result: failResult(fmt.Errorf("write export: %w", err))}
	}
	return ExportResponse{Result: okResult(), Path: destPath}
}

// ---- device link ----

type PortsResponse struct {
	Result
	Ports []device.PortInfo `json:"ports"`
}

type ConnectedResponse struct {
	Result
	Connected bool `json:"connected"`
}

func (a *API) ListPorts() PortsResponse {
	ports, err := device.ListPorts()
	if err != nil {
		return PortsResponse{Result: failResult(err)}
	}
	return PortsResponse{Result: okResult(), Ports: ports}
}

func (a *API) Connect(path string) Result {
	if err := a.device.Connect(path); err != nil {
		return failResult(err)
	}
	return okResult()
}

func (a *API) Disconnect() Result {
	if err := a.device.Disconnect(); err != nil {
		return failResult(err)
	}
	return okResult()
}

func (a *API) Send(cmd string) Result {
	if err := a.device.Send(cmd); err != nil {
		return failResult(err)
	}
	return okResult()
}

func (a *API) IsConnected() ConnectedResponse {
	return ConnectedResponse{Result: okResult(), Connected: a.device.IsConnected()}
}
