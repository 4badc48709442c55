package engineclient

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProcessInstances(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/camunda/process-instances", r.URL.Path)
		assert.Equal(t, "order_process", r.URL.Query().Get("processDefinitionKey"))
		w.Write([]byte(`[
			{"id":"p1","processDefinitionId":"order_process:1:abc","businessKey":"ORD-1","variables":{"orderId":1}},
			{"id":"p2","processDefinitionId":"order_process:1:abc","businessKey":null}
		]`))
	})

	instances, err := client.ListProcessInstances(context.Background(), "order_process")
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, "ORD-1", instances[0].BusinessKey)
	assert.Empty(t, instances[1].BusinessKey)
	assert.NotNil(t, instances[1].Variables)
}

func TestProcessInstanceVariables(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/camunda/process-instances/p1/variables" {
			http.Error(w, "Process instance not found", http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"orderId":"ORD-1","amount":99.5,"reviewApproved":true}`))
	})

	vars, err := client.ProcessInstanceVariables(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"orderId": "ORD-1", "amount": 99.5, "reviewApproved": true}, vars)

	_, err = client.ProcessInstanceVariables(context.Background(), "p2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProcessStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/camunda/process-instances/p1/status", r.URL.Path)
		w.Write([]byte(`{
			"completedActivities":[
				{"activityId":"StartEvent_OrderPlaced","activityName":"Order Placed","activityType":"startEvent",
				 "startTime":"2024-05-01T10:00:00.000+0000","endTime":"2024-05-01T10:00:00.000+0000"},
				{"activityId":"ServiceTask_ValidateOrder","activityType":"serviceTask",
				 "startTime":1714557600000,"endTime":1714557601000}
			],
			"activeActivities":[
				{"activityId":"UserTask_ReviewOrder","activityType":"userTask","startTime":"2024-05-01T10:00:01Z","endTime":null}
			],
			"isEnded":false
		}`))
	})

	snap, err := client.ProcessStatus(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, snap.CompletedActivities, 2)
	require.Len(t, snap.ActiveActivities, 1)
	assert.False(t, snap.IsEnded)

	assert.Equal(t, "StartEvent_OrderPlaced", snap.CompletedActivities[0].ActivityID)
	assert.True(t, snap.CompletedActivities[1].Completed())
	assert.Equal(t, "UserTask_ReviewOrder", snap.ActiveActivities[0].ActivityID)
	assert.Nil(t, snap.ActiveActivities[0].EndTime)
}

func TestProcessStatus_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such instance", http.StatusNotFound)
	})

	_, err := client.ProcessStatus(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "no such instance")
}

func TestProcessInstance_EscapesID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/camunda/process-instances/a%2Fb", r.URL.RawPath)
		w.Write([]byte(`{"id":"a/b","processDefinitionId":"order_process:1:x"}`))
	})

	pi, err := client.ProcessInstance(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "a/b", pi.ID)
}

func TestIdentity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/camunda/identity/users":
			w.Write([]byte(`[{"id":"manager1","firstName":"Mary","lastName":"Manager","email":"m@example.com","groups":["order_managers"]}]`))
		case "/api/camunda/identity/users/manager1":
			w.Write([]byte(`{"id":"manager1","groups":["order_managers"]}`))
		case "/api/camunda/identity/groups":
			w.Write([]byte(`[{"id":"finance_team","name":"Finance Team","type":"WORKFLOW","userIds":["finance1"]}]`))
		case "/api/camunda/identity/groups/finance_team/users":
			w.Write([]byte(`[{"id":"finance1"}]`))
		case "/api/camunda/identity/groups/finance_team":
			w.Write([]byte(`{"id":"finance_team","name":"Finance Team","type":"WORKFLOW","userIds":["finance1"]}`))
		case "/api/camunda/identity/users/manager1/groups":
			w.Write([]byte(`["order_managers","reviewers"]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	users, err := client.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, []string{"order_managers"}, users[0].Groups)

	user, err := client.User(ctx, "manager1")
	require.NoError(t, err)
	assert.Equal(t, "manager1", user.ID)

	groups, err := client.Groups(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"finance1"}, groups[0].UserIDs)

	members, err := client.UsersInGroup(ctx, "finance_team")
	require.NoError(t, err)
	assert.Equal(t, "finance1", members[0].ID)

	group, err := client.Group(ctx, "finance_team")
	require.NoError(t, err)
	assert.Equal(t, "Finance Team", group.Name)

	userGroups, err := client.UserGroups(ctx, "manager1")
	require.NoError(t, err)
	assert.Equal(t, []string{"order_managers", "reviewers"}, userGroups)

	_, err = client.User(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.Group(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngineTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *time.Time
		wantErr bool
	}{
		{name: "null", input: `null`},
		{name: "empty string", input: `""`},
		{
			name:  "epoch millis",
			input: `1714557600000`,
			want:  ptrTime(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)),
		},
		{
			name:  "rfc3339",
			input: `"2024-05-01T10:00:00Z"`,
			want:  ptrTime(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)),
		},
		{
			name:  "numeric zone offset",
			input: `"2024-05-01T12:00:00.000+0200"`,
			want:  ptrTime(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)),
		},
		{
			name:  "local datetime",
			input: `"2024-05-01T10:00:00.123"`,
			want:  ptrTime(time.Date(2024, 5, 1, 10, 0, 0, 123000000, time.UTC)),
		},
		{name: "garbage string", input: `"yesterday"`, wantErr: true},
		{name: "garbage number", input: `12.5`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var et engineTime
			err := json.Unmarshal([]byte(tt.input), &et)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			got := et.ptr()
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "want %v, got %v", tt.want, got)
		})
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
