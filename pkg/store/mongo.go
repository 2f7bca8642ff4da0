package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moveaside/moveaside/pkg/alerting"
	"github.com/moveaside/moveaside/pkg/geo"
	"github.com/moveaside/moveaside/pkg/tracking"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection         = "users"
	SessionsCollection      = "sessions"
	RidesCollection         = "rides"
	NotificationsCollection = "notifications"
)

type actorRecord struct {
	PrimaryIdentifier string
	Role              tracking.Role

	Location           *geo.Location
	LocationObservedAt time.Time

	PreviousLocation           *geo.Location
	PreviousLocationObservedAt time.Time

	Bearing float64

	ModificationDateTime time.Time
}

func (r *actorRecord) actor() *tracking.TrackedActor {
	actor := &tracking.TrackedActor{
		ID:             r.PrimaryIdentifier,
		Role:           r.Role,
		CurrentBearing: r.Bearing,
	}

	if r.Location != nil {
		if point, ok := r.Location.Point(); ok {
			actor.CurrentFix = &tracking.PositionFix{EntityID: r.PrimaryIdentifier, Location: point, ObservedAt: r.LocationObservedAt}
		}
	}
	if r.PreviousLocation != nil {
		if point, ok := r.PreviousLocation.Point(); ok {
			actor.PreviousFix = &tracking.PositionFix{EntityID: r.PrimaryIdentifier, Location: point, ObservedAt: r.PreviousLocationObservedAt}
		}
	}

	return actor
}

type sessionRecord struct {
	UserID   string
	FCMToken string
	Valid    bool

	ModificationDateTime time.Time
}

type lineString struct {
	Type        string
	Coordinates [][]float64
}

type rideRecord struct {
	PrimaryIdentifier string
	VehicleID         string

	PickupLocation *geo.Location
	DropLocation   *geo.Location
	Route          *lineString

	Status alerting.RideStatus

	LastNotification time.Time
}

func (r *rideRecord) rideContext() *alerting.RideContext {
	ride := &alerting.RideContext{
		RideID:           r.PrimaryIdentifier,
		VehicleID:        r.VehicleID,
		Status:           r.Status,
		LastNotification: r.LastNotification,
	}

	if r.PickupLocation != nil {
		if point, ok := r.PickupLocation.Point(); ok {
			ride.PickupPoint = &point
		}
	}
	if r.DropLocation != nil {
		if point, ok := r.DropLocation.Point(); ok {
			ride.DropPoint = &point
		}
	}
	if r.Route != nil {
		for _, coordinate := range r.Route.Coordinates {
			if len(coordinate) == 2 {
				ride.Route = append(ride.Route, geo.Point{Latitude: coordinate[1], Longitude: coordinate[0]})
			}
		}
	}

	return ride
}

// MongoStore implements the location, token, ride and cycle recording
// collaborators on top of a MongoDB database.
type MongoStore struct {
	users         *mongo.Collection
	sessions      *mongo.Collection
	rides         *mongo.Collection
	notifications *mongo.Collection

	now func() time.Time
}

func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{
		users:         database.Collection(UsersCollection),
		sessions:      database.Collection(SessionsCollection),
		rides:         database.Collection(RidesCollection),
		notifications: database.Collection(NotificationsCollection),
		now:           time.Now,
	}
}

// GetNearby runs a $nearSphere query against the 2dsphere index on
// users.location.
func (s *MongoStore) GetNearby(ctx context.Context, center geo.Point, radiusMeters float64, excludeID string) ([]tracking.TrackedActor, error) {
	cursor, err := s.users.Find(ctx, bson.M{
		"primaryidentifier": bson.M{"$ne": excludeID},
		"role":              tracking.RoleCandidate,
		"location": bson.M{
			"$nearSphere": bson.M{
				"$geometry":    geo.NewLocation(center),
				"$maxDistance": radiusMeters,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	var records []actorRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	actors := make([]tracking.TrackedActor, 0, len(records))
	for _, record := range records {
		actors = append(actors, *record.actor())
	}

	return actors, nil
}

// UpdateFix swaps the current location into previouslocation and writes the
// new fix in a single pipeline update, creating the record if needed. The
// swap only happens when the stored fix is not newer than fix, otherwise
// ErrStaleFix is returned and the record is left alone.
func (s *MongoStore) UpdateFix(ctx context.Context, id string, role tracking.Role, fix tracking.PositionFix) (*tracking.TrackedActor, error) {
	observedAt := fix.ObservedAt.Truncate(time.Millisecond)

	newer := bson.M{"$lte": bson.A{bson.M{"$ifNull": bson.A{"$locationobservedat", observedAt}}, observedAt}}
	ifNewer := func(value any, current string) bson.M {
		return bson.M{"$cond": bson.A{newer, value, current}}
	}

	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "primaryidentifier", Value: bson.M{"$literal": id}},
			{Key: "role", Value: bson.M{"$literal": role}},
			{Key: "previouslocation", Value: ifNewer("$location", "$previouslocation")},
			{Key: "previouslocationobservedat", Value: ifNewer("$locationobservedat", "$previouslocationobservedat")},
			{Key: "location", Value: ifNewer(bson.M{"$literal": geo.NewLocation(fix.Location)}, "$location")},
			{Key: "locationobservedat", Value: ifNewer(observedAt, "$locationobservedat")},
			{Key: "modificationdatetime", Value: ifNewer(s.now(), "$modificationdatetime")},
		}}},
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var record actorRecord
	err := s.users.FindOneAndUpdate(ctx, bson.M{"primaryidentifier": id}, update, opts).Decode(&record)
	if err != nil {
		return nil, fmt.Errorf("failed to update location of %s: %w", id, err)
	}

	if record.LocationObservedAt.After(observedAt) {
		return nil, fmt.Errorf("%w: %s observed at %s", tracking.ErrStaleFix, id, fix.ObservedAt)
	}

	return record.actor(), nil
}

func (s *MongoStore) SetBearing(ctx context.Context, id string, observedAt time.Time, bearing float64) error {
	_, err := s.users.UpdateOne(ctx, bson.M{
		"primaryidentifier":  id,
		"locationobservedat": observedAt.Truncate(time.Millisecond),
	}, bson.M{
		"$set": bson.M{"bearing": bearing},
	})

	return err
}

func (s *MongoStore) GetActor(ctx context.Context, id string) (*tracking.TrackedActor, error) {
	var record actorRecord
	err := s.users.FindOne(ctx, bson.M{"primaryidentifier": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	return record.actor(), nil
}

// GetToken returns the most recently updated valid FCM token of the user.
func (s *MongoStore) GetToken(ctx context.Context, userID string) (string, bool, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "modificationdatetime", Value: -1}})

	var session sessionRecord
	err := s.sessions.FindOne(ctx, bson.M{
		"userid":   userID,
		"valid":    true,
		"fcmtoken": bson.M{"$ne": ""},
	}, opts).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}

	return session.FCMToken, session.FCMToken != "", nil
}

func (s *MongoStore) SetToken(ctx context.Context, userID string, token string) error {
	_, err := s.sessions.UpdateOne(ctx, bson.M{"userid": userID}, bson.M{
		"$set": bson.M{
			"fcmtoken":             token,
			"valid":                token != "",
			"modificationdatetime": s.now(),
		},
	}, options.Update().SetUpsert(true))

	return err
}

func (s *MongoStore) GetRide(ctx context.Context, rideID string) (*alerting.RideContext, error) {
	var record rideRecord
	err := s.rides.FindOne(ctx, bson.M{"primaryidentifier": rideID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", alerting.ErrRideNotFound, rideID)
	} else if err != nil {
		return nil, err
	}

	return record.rideContext(), nil
}

// RecordCycle inserts a notification per notified candidate and stamps
// rides.lastnotification.
func (s *MongoStore) RecordCycle(ctx context.Context, cycle *alerting.CycleResult) error {
	notifications := notificationsForCycle(cycle, s.now())
	if len(notifications) == 0 {
		return nil
	}

	documents := make([]interface{}, 0, len(notifications))
	for _, notification := range notifications {
		documents = append(documents, notification)
	}

	if _, err := s.notifications.InsertMany(ctx, documents); err != nil {
		return fmt.Errorf("failed to insert notifications: %w", err)
	}

	if cycle.RideID != "" {
		_, err := s.rides.UpdateOne(ctx, bson.M{"primaryidentifier": cycle.RideID}, bson.M{
			"$set": bson.M{"lastnotification": notifications[0].CreationDateTime},
		})
		if err != nil {
			return fmt.Errorf("failed to update ride last notification: %w", err)
		}
	}

	return nil
}
