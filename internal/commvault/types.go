package commvault

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ID accepts both JSON numbers and strings. The backend mixes the two
// across versions for identifiers like jobId and clientId.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*id = ID(n.String())
		return nil
	}
	return fmt.Errorf("ID: cannot parse %s", string(b))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionObject struct {
	Token string `json:"token"`
}

type loginResponse struct {
	Token   string          `json:"token"`
	Console []sessionObject `json:"console"`
}

// tokenExtractors is the ordered list of strategies for pulling a token
// out of the login response. The response shape is not stable across
// backend versions; the first non-empty match wins.
var tokenExtractors = []struct {
	name    string
	extract func(*loginResponse) string
}{
	{"top-level token", func(r *loginResponse) string {
		return r.Token
	}},
	{"console session token", func(r *loginResponse) string {
		for _, session := range r.Console {
			if session.Token != "" {
				return session.Token
			}
		}
		return ""
	}},
}

func extractToken(r *loginResponse) (string, bool) {
	for _, strategy := range tokenExtractors {
		if token := strategy.extract(r); token != "" {
			return token, true
		}
	}
	return "", false
}

// VMPseudoClientList is the response envelope of /Client/VMPseudoClient.
// Entries are kept raw so one garbled entry cannot poison the batch.
type VMPseudoClientList struct {
	Clients []json.RawMessage `json:"VSPseudoClientsList"`
}

type clientEntity struct {
	ClientID   ID     `json:"clientId"`
	ClientName string `json:"clientName"`
	HostName   string `json:"hostName"`
}

// clientRef handles both shapes the backend uses for client identity:
// the fields nested under clientEntity, or flat on the client object.
type clientRef struct {
	clientEntity
	Nested *clientEntity `json:"clientEntity"`
}

func (c clientRef) entity() clientEntity {
	if c.Nested != nil {
		return *c.Nested
	}
	return c.clientEntity
}

type statusInfo struct {
	Status       ID     `json:"status"`
	StatusString string `json:"statusString"`
}

type activityControlOption struct {
	ActivityType       ID   `json:"activityType"`
	EnableActivityType bool `json:"enableActivityType"`
}

type vmClientEntry struct {
	Client   clientRef `json:"client"`
	Instance struct {
		InstanceName string `json:"instanceName"`
	} `json:"instance"`
	Status                ID          `json:"status"`
	StatusInfo            *statusInfo `json:"statusInfo"`
	ClientActivityControl struct {
		ActivityControlOptions []activityControlOption `json:"activityControlOptions"`
	} `json:"clientActivityControl"`
}

// Activity is one (activity type, enabled) pair on a VM pseudo client.
type Activity struct {
	Type    string
	Enabled bool
}

// VMClient is one parsed VM pseudo client inventory entry.
type VMClient struct {
	ClientID     string
	ClientName   string
	HostName     string
	InstanceName string
	StatusCode   string
	StatusString string
	Activities   []Activity
}

// Active reports whether the client counts as active: a small whitelist
// of status codes plus the "configured" status string.
func (c VMClient) Active() bool {
	if c.StatusCode == "0" || c.StatusCode == "1" {
		return true
	}
	return strings.EqualFold(c.StatusString, "configured")
}

// ParseVMClient decodes one raw inventory entry. An undecodable or
// identity-less entry is an error; callers skip it and move on.
func ParseVMClient(raw json.RawMessage) (VMClient, error) {
	var entry vmClientEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return VMClient{}, fmt.Errorf("ParseVMClient: %w", err)
	}

	entity := entry.Client.entity()
	if entity.ClientID == "" {
		return VMClient{}, fmt.Errorf("ParseVMClient: entry has no clientId")
	}

	statusCode := string(entry.Status)
	statusString := ""
	if entry.StatusInfo != nil {
		if entry.StatusInfo.Status != "" {
			statusCode = string(entry.StatusInfo.Status)
		}
		statusString = entry.StatusInfo.StatusString
	}
	if statusCode == "" {
		statusCode = "unknown"
	}
	if statusString == "" {
		statusString = statusCode
	}

	client := VMClient{
		ClientID:     string(entity.ClientID),
		ClientName:   orUnknown(entity.ClientName),
		HostName:     orUnknown(entity.HostName),
		InstanceName: orUnknown(entry.Instance.InstanceName),
		StatusCode:   statusCode,
		StatusString: statusString,
	}

	for _, option := range entry.ClientActivityControl.ActivityControlOptions {
		client.Activities = append(client.Activities, Activity{
			Type:    orUnknown(string(option.ActivityType)),
			Enabled: option.EnableActivityType,
		})
	}

	return client, nil
}

// JobList is the response envelope of /Job.
type JobList struct {
	Jobs []json.RawMessage `json:"jobs"`
}

type jobEntry struct {
	Summary *jobSummary `json:"jobSummary"`
}

type jobSummary struct {
	JobID        ID            `json:"jobId"`
	JobType      string        `json:"jobType"`
	ClientEntity *clientEntity `json:"clientEntity"`
	Client       *clientEntity `json:"client"`
	Subclient    struct {
		SubclientName string `json:"subclientName"`
	} `json:"subclient"`
	Status             string   `json:"status"`
	JobElapsedTime     float64  `json:"jobElapsedTime"`
	JobStartTime       float64  `json:"jobStartTime"`
	JobEndTime         float64  `json:"jobEndTime"`
	TotalFailedFiles   float64  `json:"totalFailedFiles"`
	TotalFailedFolders float64  `json:"totalFailedFolders"`
	PercentComplete    float64  `json:"percentComplete"`
	SizeOfApplication  float64  `json:"sizeOfApplication"`
	SizeOfMediaOnDisk  float64  `json:"sizeOfMediaOnDisk"`
	AlertColorLevel    *float64 `json:"alertColorLevel"`
	Severity           float64  `json:"severity"`
}

// Job is one parsed job history record.
type Job struct {
	ID              string
	Type            string
	ClientName      string
	SubclientName   string
	Status          string
	Duration        float64
	StartTime       float64
	EndTime         float64
	FailedFiles     float64
	FailedFolders   float64
	PercentComplete float64
	ApplicationSize float64
	MediaSize       float64
	AlertLevel      float64
}

// ParseJob decodes one raw job entry. Entries without a summary or
// without a job ID are malformed and reported as errors so callers can
// skip them without touching their siblings.
func ParseJob(raw json.RawMessage) (Job, error) {
	var entry jobEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Job{}, fmt.Errorf("ParseJob: %w", err)
	}
	if entry.Summary == nil {
		return Job{}, fmt.Errorf("ParseJob: entry has no jobSummary")
	}

	summary := entry.Summary
	if summary.JobID == "" {
		return Job{}, fmt.Errorf("ParseJob: entry has no jobId")
	}

	clientName := "unknown"
	if summary.ClientEntity != nil && summary.ClientEntity.ClientName != "" {
		clientName = summary.ClientEntity.ClientName
	} else if summary.Client != nil && summary.Client.ClientName != "" {
		clientName = summary.Client.ClientName
	}

	alertLevel := summary.Severity
	if summary.AlertColorLevel != nil {
		alertLevel = *summary.AlertColorLevel
	}

	return Job{
		ID:              string(summary.JobID),
		Type:            normalizeJobType(summary.JobType),
		ClientName:      clientName,
		SubclientName:   orUnknown(summary.Subclient.SubclientName),
		Status:          summary.Status,
		Duration:        summary.JobElapsedTime,
		StartTime:       summary.JobStartTime,
		EndTime:         summary.JobEndTime,
		FailedFiles:     summary.TotalFailedFiles,
		FailedFolders:   summary.TotalFailedFolders,
		PercentComplete: summary.PercentComplete,
		ApplicationSize: summary.SizeOfApplication,
		MediaSize:       summary.SizeOfMediaOnDisk,
		AlertLevel:      alertLevel,
	}, nil
}

func normalizeJobType(jobType string) string {
	if jobType == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(jobType, " ", "_"))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// JobStatus is the four-way classification of a job's raw status string,
// in the values the job status gauge reports.
type JobStatus float64

const (
	JobFailed    JobStatus = 0
	JobCompleted JobStatus = 1
	JobRunning   JobStatus = 2
	JobUnknown   JobStatus = 3
)

// ClassifyJobStatus maps the backend's raw status string onto JobStatus.
// Anything outside the known vocabulary is JobUnknown.
func ClassifyJobStatus(raw string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed":
		return JobCompleted
	case "running", "waiting", "pending", "queued", "suspended":
		return JobRunning
	case "failed", "killed", "completed w/ errors", "completed w/ warnings", "no run":
		return JobFailed
	default:
		return JobUnknown
	}
}
