package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/repository"
)

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

type appointmentRow struct {
	ID             uuid.UUID      `db:"id"`
	OrganizationID uuid.UUID      `db:"organization_id"`
	PatientID      uuid.UUID      `db:"patient_id"`
	StaffIDs       pq.StringArray `db:"staff_ids"`
	ServiceID      uuid.UUID      `db:"service_id"`
	LocationKind   string         `db:"location_kind"`
	LocationID     uuid.NullUUID  `db:"location_id"`
	StartTime      time.Time      `db:"start_time"`
	EndTime        time.Time      `db:"end_time"`
	Status         string         `db:"status"`
	Description    string         `db:"description"`
	CreatedBy      string         `db:"created_by"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

var appointmentColumns = []interface{}{
	"id", "organization_id", "patient_id", "staff_ids", "service_id",
	"location_kind", "location_id", "start_time", "end_time", "status",
	"description", "created_by", "created_at", "updated_at",
}

func (row *appointmentRow) toModel() (*model.Appointment, error) {
	staff := make([]uuid.UUID, 0, len(row.StaffIDs))
	for _, raw := range row.StaffIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid staff id %q on appointment %s: %w", raw, row.ID, err)
		}
		staff = append(staff, id)
	}

	loc := model.LocationMode{Kind: model.LocationKind(row.LocationKind)}
	if row.LocationID.Valid {
		id := row.LocationID.UUID
		loc.LocationID = &id
	}

	status := model.AppointmentStatus(row.Status)
	return &model.Appointment{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		PatientID:      row.PatientID,
		StaffIDs:       staff,
		ServiceID:      row.ServiceID,
		Location:       loc.Normalized(),
		Start:          row.StartTime.UTC(),
		End:            row.EndTime.UTC(),
		Status:         status,
		Description:    row.Description,
		CreatedBy:      model.Actor(row.CreatedBy),
		Color:          status.Color(),
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}, nil
}

func staffArray(ids []uuid.UUID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func locationIDArg(loc model.LocationMode) uuid.NullUUID {
	if loc.LocationID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *loc.LocationID, Valid: true}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, organization_id, patient_id, staff_ids, service_id,
			location_kind, location_id, start_time, end_time, status,
			description, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now().UTC()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	if appointment.UpdatedAt.IsZero() {
		appointment.UpdatedAt = appointment.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.OrganizationID,
		appointment.PatientID,
		staffArray(appointment.StaffIDs),
		appointment.ServiceID,
		string(appointment.Location.Normalized().Kind),
		locationIDArg(appointment.Location),
		appointment.Start.UTC(),
		appointment.End.UTC(),
		string(appointment.Status),
		appointment.Description,
		string(appointment.CreatedBy),
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	r.observe("appointment_create", err)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, orgID, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, organization_id, patient_id, staff_ids, service_id,
			   location_kind, location_id, start_time, end_time, status,
			   description, created_by, created_at, updated_at
		FROM appointments
		WHERE organization_id = $1 AND id = $2
	`
	var row appointmentRow
	err := r.db.GetContext(ctx, &row, query, orgID, id)
	if errors.Is(err, sql.ErrNoRows) {
		r.observe("appointment_get", nil)
		return nil, repository.ErrNotFound
	}
	r.observe("appointment_get", err)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return row.toModel()
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET patient_id = $1, staff_ids = $2, service_id = $3,
			location_kind = $4, location_id = $5, start_time = $6, end_time = $7,
			status = $8, description = $9, updated_at = $10
		WHERE organization_id = $11 AND id = $12
	`
	if appointment.UpdatedAt.IsZero() {
		appointment.UpdatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, query,
		appointment.PatientID,
		staffArray(appointment.StaffIDs),
		appointment.ServiceID,
		string(appointment.Location.Normalized().Kind),
		locationIDArg(appointment.Location),
		appointment.Start.UTC(),
		appointment.End.UTC(),
		string(appointment.Status),
		appointment.Description,
		appointment.UpdatedAt,
		appointment.OrganizationID,
		appointment.ID,
	)
	r.observe("appointment_update", err)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	query := `DELETE FROM appointments WHERE organization_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, orgID, id)
	r.observe("appointment_delete", err)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// overlapExpr selects rows whose [start_time, end_time) intersects the range,
// counting zero-length rows as their start instant.
func overlapExpr(rng model.TimeRange) exp.Expression {
	return goqu.And(
		goqu.C("start_time").Lt(rng.To.UTC()),
		goqu.Or(
			goqu.C("end_time").Gt(rng.From.UTC()),
			goqu.And(
				goqu.C("end_time").Eq(goqu.I("start_time")),
				goqu.C("start_time").Gte(rng.From.UTC()),
			),
		),
	)
}

func uuidStrings(ids []uuid.UUID) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func (r *appointmentRepository) List(ctx context.Context, q model.AppointmentQuery) ([]*model.Appointment, error) {
	ds := r.dialect.From("appointments").Prepared(true).
		Select(appointmentColumns...).
		Where(
			goqu.C("organization_id").Eq(q.OrganizationID.String()),
			overlapExpr(q.Range),
		)

	if len(q.Filter.StaffIDs) > 0 {
		ds = ds.Where(goqu.L("staff_ids && ?::uuid[]", staffArray(q.Filter.StaffIDs)))
	}
	if len(q.Filter.ServiceIDs) > 0 {
		ds = ds.Where(goqu.C("service_id").In(uuidStrings(q.Filter.ServiceIDs)...))
	}
	if q.Filter.LocationRestricted() {
		var alts []exp.Expression
		for _, l := range q.Filter.Locations {
			switch l.Kind {
			case model.LocationFilterTelemedicine:
				alts = append(alts, goqu.C("location_kind").Eq(string(model.LocationTelemedicine)))
			case model.LocationFilterSpecific:
				alts = append(alts, goqu.And(
					goqu.C("location_kind").Eq(string(model.LocationPhysical)),
					goqu.C("location_id").Eq(l.LocationID.String()),
				))
			}
		}
		ds = ds.Where(goqu.Or(alts...))
	}

	query, args, err := ds.Order(goqu.C("start_time").Asc(), goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build appointment query: %w", err)
	}

	var rows []appointmentRow
	err = r.db.SelectContext(ctx, &rows, query, args...)
	r.observe("appointment_list", err)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	out := make([]*model.Appointment, 0, len(rows))
	for i := range rows {
		a, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
