package apimarket

import "github.com/xraph/apimarket/id"

// ID is the TypeID used for notifications, transfers and commits.
type ID = id.ID

// ServiceID identifies a registered service.
type ServiceID = id.ServiceID

// SubscriptionID identifies a purchased subscription.
type SubscriptionID = id.SubscriptionID
