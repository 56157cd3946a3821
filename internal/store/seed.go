package store

import (
	"context"
	"fmt"
)

// demo holds the records inserted by Seed.
var demo = []Record{
	{Kind: "customers", Title: "Nguyễn Thị Lan", Data: map[string]string{"phone": "0901 234 567", "city": "Hà Nội"}},
	{Kind: "customers", Title: "Trần Văn Minh", Data: map[string]string{"phone": "0912 345 678", "city": "Đà Nẵng"}},
	{Kind: "customers", Title: "Lê Hoàng Anh", Data: map[string]string{"phone": "0987 654 321", "city": "TP. Hồ Chí Minh"}},

	{Kind: "products", Title: "Serum dưỡng ẩm", Amount: 450000, Data: map[string]string{"sku": "SR-001", "stock": "24"}},
	{Kind: "products", Title: "Kem chống nắng SPF50", Amount: 320000, Data: map[string]string{"sku": "KC-050", "stock": "40"}},

	{Kind: "orders", Title: "Đơn hàng #1001", Amount: 770000, Data: map[string]string{"customer": "1", "status": "paid"}},
	{Kind: "orders", Title: "Đơn hàng #1002", Amount: 320000, Data: map[string]string{"customer": "2", "status": "pending"}},

	{Kind: "consultations", Title: "Tư vấn chăm sóc da", Data: map[string]string{"customer": "1"},
		Notes: "## Tình trạng\n\nDa khô, có **nám nhẹ** vùng má.\n\n- Dùng serum dưỡng ẩm buổi tối\n- Tái khám sau 2 tuần"},

	{Kind: "supplies", Title: "Găng tay y tế", Amount: 150000, Data: map[string]string{"unit": "hộp", "quantity": "10"}},

	{Kind: "expenses", Title: "Tiền điện tháng 9", Amount: 2300000, Data: map[string]string{"category": "utilities"}},
	{Kind: "expenses", Title: "Thuê mặt bằng", Amount: 15000000, Data: map[string]string{"category": "rent"}},

	{Kind: "debts", Title: "Công nợ nhà cung cấp A", Amount: 5000000, Data: map[string]string{"due": "2026-11-30"}},

	{Kind: "treatments", Title: "Liệu trình trị mụn 10 buổi", Amount: 3500000, Data: map[string]string{"customer": "3", "sessions": "10"},
		Notes: "Buổi 1: làm sạch sâu.\n\nBuổi 2-10: *chiếu đèn* và đắp mặt nạ."},

	{Kind: "users", Title: "Phạm Quốc Bảo", Data: map[string]string{"role": "admin", "email": "bao@example.com"}},
	{Kind: "users", Title: "Võ Thị Hạnh", Data: map[string]string{"role": "staff", "email": "hanh@example.com"}},
}

// Seed inserts demo records when the store is empty. It reports how many
// records were inserted.
func (s *Store) Seed(ctx context.Context) (int, error) {
	counts, err := s.Counts(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range counts {
		if t.Count > 0 {
			return 0, nil
		}
	}

	for i := range demo {
		r := demo[i]
		r.Data = cloneData(r.Data)
		if err := s.Put(ctx, &r); err != nil {
			return i, fmt.Errorf("store: seed %s %q: %w", r.Kind, r.Title, err)
		}
	}

	s.logger.Info("seeded demo records", "count", len(demo))
	return len(demo), nil
}

func cloneData(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
