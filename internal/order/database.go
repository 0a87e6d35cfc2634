package order

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const (
	ordersBucket       = "orders"
	orderNumbersBucket = "order_numbers"
	staffBucket        = "staff"
	uploadsBucket      = "uploads"
)

// DB defines the interface for database operations
type DB interface {
	// SaveOrder saves an order and indexes its number.
	// Returns ErrDuplicateOrder when the number belongs to another order.
	SaveOrder(order *Order) error

	// GetOrder retrieves an order by ID
	GetOrder(id string) (*Order, error)

	// FindOrderByNumber retrieves an order by its printed number
	FindOrderByNumber(number string) (*Order, error)

	// ListOrders returns all orders
	ListOrders() ([]*Order, error)

	// DeleteOrder removes an order and its number index entry
	DeleteOrder(id string) error

	// SaveUpload records a stored upload that no order has claimed yet
	SaveUpload(name string) error

	// ClaimUpload removes a pending upload so only one order can own it.
	// Returns ErrNotFound when the name was never issued or is already claimed.
	ClaimUpload(name string) error

	// SaveStaff saves a staff member
	SaveStaff(staff *Staff) error

	// GetStaff retrieves a staff member by ID
	GetStaff(id string) (*Staff, error)

	// ListStaff returns all staff members
	ListStaff() ([]*Staff, error)

	// DeleteStaff removes a staff member
	DeleteStaff(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{ordersBucket, orderNumbersBucket, staffBucket, uploadsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// numberKey is the index key for an order number: trimmed and upper-cased
func numberKey(number string) []byte {
	return []byte(strings.ToUpper(strings.TrimSpace(number)))
}

// SaveOrder saves an order and keeps the number index in the same transaction
func (b *BoltDB) SaveOrder(order *Order) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		orders := tx.Bucket([]byte(ordersBucket))
		numbers := tx.Bucket([]byte(orderNumbersBucket))

		key := numberKey(order.Number)
		if owner := numbers.Get(key); owner != nil && string(owner) != order.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateOrder, order.Number)
		}

		// Drop the old index entry when the number changed
		if prev := orders.Get([]byte(order.ID)); prev != nil {
			var old Order
			if err := json.Unmarshal(prev, &old); err != nil {
				return fmt.Errorf("unmarshaling order: %w", err)
			}
			if oldKey := numberKey(old.Number); string(oldKey) != string(key) {
				if err := numbers.Delete(oldKey); err != nil {
					return err
				}
			}
		}

		data, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("marshaling order: %w", err)
		}
		if err := orders.Put([]byte(order.ID), data); err != nil {
			return err
		}
		return numbers.Put(key, []byte(order.ID))
	})
}

// GetOrder retrieves an order by ID
func (b *BoltDB) GetOrder(id string) (*Order, error) {
	var order *Order
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(ordersBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// FindOrderByNumber retrieves an order through the number index
func (b *BoltDB) FindOrderByNumber(number string) (*Order, error) {
	var order *Order
	err := b.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket([]byte(orderNumbersBucket)).Get(numberKey(number))
		if id == nil {
			return fmt.Errorf("order number %s: %w", number, ErrNotFound)
		}
		data := tx.Bucket([]byte(ordersBucket)).Get(id)
		if data == nil {
			return fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns all orders
func (b *BoltDB) ListOrders() ([]*Order, error) {
	orders := make([]*Order, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(ordersBucket)).ForEach(func(k, v []byte) error {
			var order Order
			if err := json.Unmarshal(v, &order); err != nil {
				return fmt.Errorf("unmarshaling order: %w", err)
			}
			orders = append(orders, &order)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// DeleteOrder removes an order and its number index entry
func (b *BoltDB) DeleteOrder(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		orders := tx.Bucket([]byte(ordersBucket))
		data := orders.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		var order Order
		if err := json.Unmarshal(data, &order); err != nil {
			return fmt.Errorf("unmarshaling order: %w", err)
		}
		numbers := tx.Bucket([]byte(orderNumbersBucket))
		key := numberKey(order.Number)
		if owner := numbers.Get(key); owner != nil && string(owner) == id {
			if err := numbers.Delete(key); err != nil {
				return err
			}
		}
		return orders.Delete([]byte(id))
	})
}

// SaveUpload records a pending upload
func (b *BoltDB) SaveUpload(name string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(uploadsBucket)).Put([]byte(name), []byte("pending"))
	})
}

// ClaimUpload removes a pending upload in one transaction
func (b *BoltDB) ClaimUpload(name string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(uploadsBucket))
		if bucket.Get([]byte(name)) == nil {
			return fmt.Errorf("upload %s: %w", name, ErrNotFound)
		}
		return bucket.Delete([]byte(name))
	})
}

// SaveStaff saves a staff member
func (b *BoltDB) SaveStaff(staff *Staff) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(staff)
		if err != nil {
			return fmt.Errorf("marshaling staff: %w", err)
		}
		return tx.Bucket([]byte(staffBucket)).Put([]byte(staff.ID), data)
	})
}

// GetStaff retrieves a staff member by ID
func (b *BoltDB) GetStaff(id string) (*Staff, error) {
	var staff *Staff
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(staffBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("staff %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &staff)
	})
	if err != nil {
		return nil, err
	}
	return staff, nil
}

// ListStaff returns all staff members
func (b *BoltDB) ListStaff() ([]*Staff, error) {
	members := make([]*Staff, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(staffBucket)).ForEach(func(k, v []byte) error {
			var staff Staff
			if err := json.Unmarshal(v, &staff); err != nil {
				return fmt.Errorf("unmarshaling staff: %w", err)
			}
			members = append(members, &staff)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return members, nil
}

// DeleteStaff removes a staff member
func (b *BoltDB) DeleteStaff(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(staffBucket))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("staff %s: %w", id, ErrNotFound)
		}
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
