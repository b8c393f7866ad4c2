package metadata

import "strconv"

// curationKeyPrefix 后接物品ID，记录该物品的效果数据已被馆长确认。
// 标记与效果行在同一事务中写入，读路径据此区分"已审核"与"统计中"。
const curationKeyPrefix = "curation:item:"

// CurationKey 返回某个物品的审核标记键
func CurationKey(itemID uint) string {
	return curationKeyPrefix + strconv.FormatUint(uint64(itemID), 10)
}
